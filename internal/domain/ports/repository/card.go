package repository

import (
	"context"

	"card-index-pipeline/internal/domain/model"
)

type CardRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Card, error)
	// MarkProcessing atomically flips the card to 'processing' and returns the
	// fresh row. Returns domain.ErrNotFound when the id does not resolve;
	// nothing is mutated in that case.
	MarkProcessing(ctx context.Context, id string) (*model.Card, error)
	// MarkFailed records the failure message and flips the card to 'failed'.
	MarkFailed(ctx context.Context, id string, errMsg string) error
	// SaveProcessed writes the extracted text and flips the card to
	// 'completed'. Must run inside the same transaction as the chunk rewrite.
	SaveProcessed(ctx context.Context, tx Tx, id string, processedContent string) error
}
