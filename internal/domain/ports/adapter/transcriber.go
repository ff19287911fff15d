package adapter

import "context"

// Transcriber runs speech-to-text over a local audio file and returns the
// raw transcript, timestamp markers included.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
