package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pgvector/pgvector-go"

	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/repository"
)

var _ repository.ChunkRepository = (*chunkRepo)(nil)

type chunkRepo struct {
	pool *pgxpool.Pool
}

func NewChunkRepo(pool *pgxpool.Pool) *chunkRepo {
	return &chunkRepo{pool: pool}
}

func (r *chunkRepo) DeleteByCard(ctx context.Context, tx repository.Tx, cardID string) error {
	ex, err := pickExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `DELETE FROM card_chunks WHERE card_id = $1;`, cardID)
	return err
}

func (r *chunkRepo) InsertBatch(ctx context.Context, tx repository.Tx, chunks []*model.Chunk) error {
	ex, err := pickExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO card_chunks (id, card_id, chunk_text, embedding, chunk_order, created_at)
VALUES ($1, $2, $3, $4::vector, $5, $6);`
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		if _, err := ex.Exec(ctx, q, c.ID, c.CardID, c.ChunkText, c.Embedding, c.Order, c.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %d of card %s: %w", c.Order, c.CardID, err)
		}
	}
	return nil
}

// SearchSimilar scores every chunk belonging to the chat's index with
// 1 - cosine distance and keeps the closest matches above the threshold.
func (r *chunkRepo) SearchSimilar(ctx context.Context, chatID string, query pgvector.Vector, threshold float64, limit int) ([]model.ScoredChunk, error) {
	const q = `
SELECT cc.card_id, cc.chunk_text, cc.chunk_order,
       1 - (cc.embedding <=> $2::vector) AS similarity
  FROM card_chunks cc
  JOIN index_cards ic ON cc.card_id = ic.id
  JOIN indexes ix ON ic.index_id = ix.id
  JOIN chats ch ON ch.index_id = ix.id
 WHERE ch.id = $1
   AND 1 - (cc.embedding <=> $2::vector) > $3
 ORDER BY similarity DESC
 LIMIT $4;`

	rows, err := r.pool.Query(ctx, q, chatID, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	out := make([]model.ScoredChunk, 0, limit)
	for rows.Next() {
		var sc model.ScoredChunk
		if err := rows.Scan(&sc.CardID, &sc.ChunkText, &sc.Order, &sc.Similarity); err != nil {
			return nil, fmt.Errorf("scan similarity row: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// FetchNeighbors widens every hit to the chunks of the same card within
// ±window of the hit's order, globally ordered by (card_id, chunk_order).
func (r *chunkRepo) FetchNeighbors(ctx context.Context, hits []model.ScoredChunk, window int) ([]model.ScoredChunk, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(hits))
	args := make([]interface{}, 0, len(hits)*3)
	for i, h := range hits {
		base := i * 3
		conds = append(conds, fmt.Sprintf("(card_id = $%d AND chunk_order BETWEEN $%d AND $%d)", base+1, base+2, base+3))
		args = append(args, h.CardID, h.Order-window, h.Order+window)
	}

	q := `
SELECT card_id, chunk_text, chunk_order
  FROM card_chunks
 WHERE ` + strings.Join(conds, " OR ") + `
 ORDER BY card_id, chunk_order;`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch neighbor chunks: %w", err)
	}
	defer rows.Close()

	out := make([]model.ScoredChunk, 0, len(hits)*(2*window+1))
	seen := make(map[string]struct{}, cap(out))
	for rows.Next() {
		var sc model.ScoredChunk
		if err := rows.Scan(&sc.CardID, &sc.ChunkText, &sc.Order); err != nil {
			return nil, fmt.Errorf("scan neighbor row: %w", err)
		}
		// overlapping windows of two hits on the same card can return a row twice
		key := fmt.Sprintf("%s:%d", sc.CardID, sc.Order)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sc)
	}
	return out, rows.Err()
}
