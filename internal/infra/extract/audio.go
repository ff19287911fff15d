package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/util"
)

// AudioExtractor fetches the audio object into the scratch directory and
// runs speech-to-text over it. The youtube adapter reuses TranscribeFile for
// files it downloaded itself.
type AudioExtractor struct {
	storage     adapter.ObjectStorage
	transcriber adapter.Transcriber
}

var _ adapter.Extractor = (*AudioExtractor)(nil)

func NewAudioExtractor(storage adapter.ObjectStorage, transcriber adapter.Transcriber) *AudioExtractor {
	return &AudioExtractor{storage: storage, transcriber: transcriber}
}

func (e *AudioExtractor) Extract(ctx context.Context, req adapter.Request) (string, error) {
	localPath := filepath.Join(req.ScratchDir, "source-audio")
	if err := e.storage.FetchToFile(ctx, req.Card.Source, localPath); err != nil {
		return "", fmt.Errorf("fetch audio %s: %w", req.Card.Source, err)
	}
	return e.TranscribeFile(ctx, localPath)
}

// TranscribeFile runs transcription over a local audio file and cleans the
// transcript for indexing.
func (e *AudioExtractor) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	raw, err := e.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	text := util.NormalizeWhitespace(stripTimestamps(raw))
	if text == "" {
		return "", domain.ErrNoExtractableContent
	}
	return text, nil
}

// e.g. "[00:00:00.000 --> 00:00:04.500]  hello" from whisper-style output
var timestampRe = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}\.\d{3}\]\s*`)

func stripTimestamps(raw string) string {
	return timestampRe.ReplaceAllString(raw, "")
}
