package extract

import (
	"context"
	"time"

	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/adapter"
)

// Deps carries the external collaborators the adapters are built from.
type Deps struct {
	Browser         *Browser
	Storage         adapter.ObjectStorage
	Transcriber     adapter.Transcriber
	ConverterURL    string
	PageTimeout     time.Duration
	DownloadTimeout time.Duration
}

// NewRegistry wires one extractor per card type. The set is closed; the
// processor treats a type without an entry as a validation failure.
func NewRegistry(d Deps) adapter.Registry {
	web := NewWebExtractor(d.Browser, d.PageTimeout)
	audio := NewAudioExtractor(d.Storage, d.Transcriber)

	return adapter.Registry{
		model.CardTypeText:    NewTextExtractor(),
		model.CardTypeURL:     web,
		model.CardTypeTweet:   web,
		model.CardTypePDF:     NewPDFExtractor(d.Storage),
		model.CardTypeYouTube: NewYouTubeExtractor(d.Browser, audio, d.ConverterURL, d.PageTimeout, d.DownloadTimeout),
		model.CardTypeAudio:   audio,
		// spotify cards are decorative; the processor never dispatches them
		model.CardTypeSpotify: adapter.ExtractorFunc(func(ctx context.Context, req adapter.Request) (string, error) {
			return "", nil
		}),
	}
}
