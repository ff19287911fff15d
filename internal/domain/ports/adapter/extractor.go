package adapter

import (
	"context"

	"card-index-pipeline/internal/domain/model"
)

// Request carries everything an extractor may need for one card. ScratchDir
// is set only for types that stage files on disk; it is private to the job
// and removed by the processor regardless of outcome.
type Request struct {
	Card       *model.Card
	ScratchDir string
}

// Extractor converts one card's source into plain retrievable text.
// Implementations never partially commit results; any internal failure
// surfaces as a single error with a human-readable message.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Registry maps each card type to its extractor. Closed set, populated once
// at startup.
type Registry map[model.CardType]Extractor
