package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/domain/ports/repository"
	"card-index-pipeline/internal/infra/logging"
	"card-index-pipeline/internal/util"
)

// IngestUseCase is the chunk+embed+commit stage. One Commit call replaces
// the card's chunk set wholesale and flips the card to completed inside a
// single transaction, so a failed run leaves the previous chunks untouched.
type IngestUseCase struct {
	chunks   repository.ChunkRepository
	cards    repository.CardRepository
	tm       repository.TransactionManager
	embedder adapter.Embedder
	size     int
	overlap  int
	log      *zerolog.Logger
}

func NewIngestUseCase(
	chunks repository.ChunkRepository,
	cards repository.CardRepository,
	tm repository.TransactionManager,
	embedder adapter.Embedder,
	chunkSize, chunkOverlap int,
	log *zerolog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		chunks:   chunks,
		cards:    cards,
		tm:       tm,
		embedder: embedder,
		size:     chunkSize,
		overlap:  chunkOverlap,
		log:      log,
	}
}

func (u *IngestUseCase) Commit(ctx context.Context, card *model.Card, text string) error {
	defer logging.TraceDuration(u.log, "IngestUC.Commit")()

	text = util.SanitizeText(text)
	if text == "" {
		return domain.ErrNoExtractableContent
	}

	parts := util.ChunkText(text, u.size, u.overlap)
	if len(parts) == 0 {
		return domain.ErrNoExtractableContent
	}

	vectors, err := u.embedder.EmbedBatch(ctx, parts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(parts) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(parts))
	}

	chunks := make([]*model.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = &model.Chunk{
			CardID:    card.ID,
			ChunkText: part,
			Embedding: pgvector.NewVector(vectors[i]),
			Order:     i + 1, // 1-based, contiguous
		}
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.chunks.DeleteByCard(ctx, tx, card.ID); err != nil {
			return fmt.Errorf("delete previous chunks: %w", err)
		}
		if err := u.chunks.InsertBatch(ctx, tx, chunks); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		return u.cards.SaveProcessed(ctx, tx, card.ID, text)
	})
	if err != nil {
		return err
	}

	u.log.Info().Str("card_id", card.ID).Int("chunks", len(chunks)).Msg("chunks committed")
	return nil
}
