package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"card-index-pipeline/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Transcriber = (*WhisperTranscriber)(nil)

// WhisperTranscriber implements adapter.Transcriber against the OpenAI
// audio transcription endpoint (or any compatible gateway).
type WhisperTranscriber struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewWhisperTranscriber(apiKey, model, base string) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("transcription api key empty")
	}
	if model == "" {
		model = "whisper-1"
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &WhisperTranscriber{
		apiKey: apiKey,
		base:   base,
		model:  model,
		// transcription of long audio is slow; allow generous time
		client: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	_ = mw.WriteField("model", t.model)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription http %d", resp.StatusCode)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Text == "" {
		return "", errors.New("empty transcription result")
	}
	return payload.Text, nil
}
