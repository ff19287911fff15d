package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/domain/ports/repository"
)

// JobQueue is the producer side of the card stream.
type JobQueue interface {
	Enqueue(ctx context.Context, cardID string, cardType model.CardType) error
}

// RetryLimiter gates how often a single card may be re-enqueued.
type RetryLimiter interface {
	Allow(ctx context.Context, cardID string) (bool, error)
}

// CardQueueUseCase is the producer boundary: it hands freshly created cards
// to the stream and re-enqueues failed ones on request.
type CardQueueUseCase struct {
	cards   repository.CardRepository
	queue   JobQueue
	limiter RetryLimiter
	storage adapter.ObjectStorage
	log     *zerolog.Logger
}

func NewCardQueueUseCase(cards repository.CardRepository, queue JobQueue, limiter RetryLimiter, storage adapter.ObjectStorage, log *zerolog.Logger) *CardQueueUseCase {
	return &CardQueueUseCase{cards: cards, queue: queue, limiter: limiter, storage: storage, log: log}
}

// EnqueueNew publishes a pending card for processing. The card row itself is
// created by the web layer; only the job record is appended here.
func (u *CardQueueUseCase) EnqueueNew(ctx context.Context, cardID string) error {
	card, err := u.cards.FindByID(ctx, nil, cardID)
	if err != nil {
		return err
	}
	if !card.Type.IsValid() {
		return fmt.Errorf("%w: unknown card type %q", domain.ErrInvalidArgument, card.Type)
	}
	if err := u.queue.Enqueue(ctx, card.ID, card.Type); err != nil {
		return fmt.Errorf("enqueue card: %w", err)
	}
	u.log.Info().Str("card_id", card.ID).Str("card_type", string(card.Type)).Msg("card enqueued")
	return nil
}

// Retry re-enqueues a failed card. Cards in any other state are rejected,
// and repeat requests inside the rate-limit window get ErrRateLimited.
func (u *CardQueueUseCase) Retry(ctx context.Context, cardID string) error {
	card, err := u.cards.FindByID(ctx, nil, cardID)
	if err != nil {
		return err
	}
	if card.Status != model.CardStatusFailed {
		return fmt.Errorf("%w: card %s is %s", domain.ErrNotRetryable, card.ID, card.Status)
	}

	ok, err := u.limiter.Allow(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("retry limiter: %w", err)
	}
	if !ok {
		return domain.ErrRateLimited
	}

	if err := u.queue.Enqueue(ctx, card.ID, card.Type); err != nil {
		return fmt.Errorf("enqueue retry: %w", err)
	}
	u.log.Info().Str("card_id", card.ID).Msg("card re-enqueued")
	return nil
}

// SourceURL issues a presigned download link for a card whose source lives
// in object storage. Other card types carry their source inline.
func (u *CardQueueUseCase) SourceURL(ctx context.Context, cardID string) (string, error) {
	card, err := u.cards.FindByID(ctx, nil, cardID)
	if err != nil {
		return "", err
	}
	switch card.Type {
	case model.CardTypePDF, model.CardTypeAudio:
	default:
		return "", fmt.Errorf("%w: %s cards have no stored source object", domain.ErrInvalidArgument, card.Type)
	}
	url, err := u.storage.PresignDownload(ctx, card.Source)
	if err != nil {
		return "", fmt.Errorf("presign source: %w", err)
	}
	return url, nil
}
