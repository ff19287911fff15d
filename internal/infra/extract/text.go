package extract

import (
	"context"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/util"
)

// TextExtractor is the pass-through adapter: the card's source already is
// the text.
type TextExtractor struct{}

var _ adapter.Extractor = (*TextExtractor)(nil)

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Extract(ctx context.Context, req adapter.Request) (string, error) {
	text := util.SanitizeText(req.Card.Source)
	if text == "" {
		return "", domain.ErrNoExtractableContent
	}
	return text, nil
}
