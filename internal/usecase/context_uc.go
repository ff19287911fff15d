package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/domain/ports/repository"
	"card-index-pipeline/internal/infra/logging"
	"card-index-pipeline/internal/infra/metrics"
)

const (
	similarityThreshold = 0.3
	topMatches          = 5
	neighborWindow      = 2
)

// ContextUseCase turns a chat query into a context block for the LLM:
// embed the query, pull the top similar chunks across the chat's indexes,
// widen each hit with its surrounding chunks, and join the texts.
type ContextUseCase struct {
	chunks   repository.ChunkRepository
	embedder adapter.Embedder
	log      *zerolog.Logger
}

func NewContextUseCase(chunks repository.ChunkRepository, embedder adapter.Embedder, log *zerolog.Logger) *ContextUseCase {
	return &ContextUseCase{chunks: chunks, embedder: embedder, log: log}
}

// ContextResult carries the assembled context text and the ids of the
// cards that contributed a direct hit, in score order.
type ContextResult struct {
	Context           string
	ReferencedCardIDs []string
}

func (u *ContextUseCase) Assemble(ctx context.Context, chatID, query string) (*ContextResult, error) {
	defer logging.TraceDuration(u.log, "ContextUC.Assemble")()

	vec, err := u.embedder.EmbedText(ctx, query)
	if err != nil {
		metrics.IncContextQuery("error")
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := u.chunks.SearchSimilar(ctx, chatID, pgvector.NewVector(vec), similarityThreshold, topMatches)
	if err != nil {
		metrics.IncContextQuery("error")
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(hits) == 0 {
		metrics.IncContextQuery("empty")
		u.log.Debug().Str("chat_id", chatID).Msg("no chunks above similarity threshold")
		return &ContextResult{}, nil
	}

	// Cards in score order, each counted once however many chunks hit.
	seen := make(map[string]bool, len(hits))
	refs := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.CardID] {
			seen[h.CardID] = true
			refs = append(refs, h.CardID)
		}
	}

	expanded, err := u.chunks.FetchNeighbors(ctx, hits, neighborWindow)
	if err != nil {
		metrics.IncContextQuery("error")
		return nil, fmt.Errorf("fetch neighbor chunks: %w", err)
	}

	blocks := make([]string, len(expanded))
	for i, c := range expanded {
		blocks[i] = "[" + c.ChunkText + "]"
	}

	metrics.IncContextQuery("hit")
	metrics.ObserveContextChunks(len(expanded))
	u.log.Debug().
		Str("chat_id", chatID).
		Int("hits", len(hits)).
		Int("chunks", len(expanded)).
		Msg("context assembled")

	return &ContextResult{
		Context:           strings.Join(blocks, "\n\n"),
		ReferencedCardIDs: refs,
	}, nil
}
