package repository

import (
	"context"

	"card-index-pipeline/internal/domain/model"

	"github.com/pgvector/pgvector-go"
)

type ChunkRepository interface {
	// DeleteByCard removes every chunk owned by the card. Part of the
	// wholesale-rewrite commit; always called in the same transaction as
	// InsertBatch.
	DeleteByCard(ctx context.Context, tx Tx, cardID string) error
	InsertBatch(ctx context.Context, tx Tx, chunks []*model.Chunk) error
	// SearchSimilar returns chunks of cards in the chat's index whose
	// similarity (1 - cosine distance) to query strictly exceeds threshold,
	// ordered by similarity descending, at most limit rows.
	SearchSimilar(ctx context.Context, chatID string, query pgvector.Vector, threshold float64, limit int) ([]model.ScoredChunk, error)
	// FetchNeighbors returns, for each hit, every chunk of the same card
	// whose order lies within ±window of the hit's order, ordered by
	// (card_id, chunk_order).
	FetchNeighbors(ctx context.Context, hits []model.ScoredChunk, window int) ([]model.ScoredChunk, error)
}
