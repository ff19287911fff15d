package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/repository"
)

var _ repository.CardRepository = (*cardRepo)(nil)

type cardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *cardRepo {
	return &cardRepo{pool: pool}
}

const cardColumns = `id, index_id, type, source, COALESCE(processed_content, ''), status, COALESCE(error_message, ''), created_at`

func scanCard(row pgx.Row) (*model.Card, error) {
	var c model.Card
	var typeStr, statusStr string
	err := row.Scan(&c.ID, &c.IndexID, &typeStr, &c.Source, &c.ProcessedContent, &statusStr, &c.ErrorMessage, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Type = model.CardType(typeStr)
	c.Status = model.CardStatus(statusStr)
	return &c, nil
}

func (r *cardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Card, error) {
	ex, err := pickExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanCard(ex.QueryRow(ctx, `SELECT `+cardColumns+` FROM index_cards WHERE id = $1;`, id))
}

// MarkProcessing is a single update-and-return; an id that does not resolve
// mutates nothing and yields domain.ErrNotFound.
func (r *cardRepo) MarkProcessing(ctx context.Context, id string) (*model.Card, error) {
	const q = `
UPDATE index_cards SET status = 'processing', error_message = NULL
 WHERE id = $1
RETURNING ` + cardColumns + `;`
	return scanCard(r.pool.QueryRow(ctx, q, id))
}

func (r *cardRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	const q = `UPDATE index_cards SET status = 'failed', error_message = $2 WHERE id = $1;`
	tag, err := r.pool.Exec(ctx, q, id, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cardRepo) SaveProcessed(ctx context.Context, tx repository.Tx, id string, processedContent string) error {
	ex, err := pickExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE index_cards
   SET processed_content = $2, status = 'completed', error_message = NULL
 WHERE id = $1;`
	tag, err := ex.Exec(ctx, q, id, processedContent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
