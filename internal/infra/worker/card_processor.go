package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/domain/ports/repository"
	"card-index-pipeline/internal/infra/metrics"
)

// Ingester is the chunk+embed+commit stage: it persists the extracted text
// and flips the card to completed inside one transaction.
type Ingester interface {
	Commit(ctx context.Context, card *model.Card, text string) error
}

// CardProcessor owns the per-card state machine. One Process call handles
// one job end to end; a failure at any stage is converted into the card's
// errorMessage and never propagates past this boundary.
type CardProcessor struct {
	cards    repository.CardRepository
	registry adapter.Registry
	ingester Ingester
	attempts int
	log      *zerolog.Logger
}

func NewCardProcessor(
	cards repository.CardRepository,
	registry adapter.Registry,
	ingester Ingester,
	attempts int,
	log *zerolog.Logger,
) *CardProcessor {
	return &CardProcessor{
		cards:    cards,
		registry: registry,
		ingester: ingester,
		attempts: attempts,
		log:      log,
	}
}

// Process runs one job. The returned error is informational; the consumer
// loop only logs it.
func (p *CardProcessor) Process(ctx context.Context, job *model.CardJob) (err error) {
	log := p.log.With().Str("card_id", job.CardID).Str("card_type", string(job.CardType)).Logger()

	// The recover boundary covers the whole job, MarkProcessing included;
	// a panicking job must never take the consumer loop down with it.
	var card *model.Card
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during card processing: %v", r)
			log.Error().Err(err).Msg("card processing panicked")
			if card != nil {
				p.fail(card, err)
			}
		}
	}()

	// Decorative type: never leaves pending.
	if job.CardType == model.CardTypeSpotify {
		log.Info().Msg("spotify card is decorative, skipping")
		return nil
	}

	// Fatal if this fails: the retry wrapper is deliberately not applied to
	// the initial status flip.
	card, err = p.cards.MarkProcessing(ctx, job.CardID)
	if err != nil {
		log.Error().Err(err).Msg("could not mark card processing")
		return err
	}

	start := time.Now()

	var scratchDir string
	if card.Type.NeedsScratchDir() {
		scratchDir, err = os.MkdirTemp("", "card-"+card.ID+"-")
		if err != nil {
			err = fmt.Errorf("create scratch dir: %w", err)
			p.fail(card, err)
			return err
		}
		defer os.RemoveAll(scratchDir)
	}

	extractor, ok := p.registry[card.Type]
	if !ok {
		// malformed job input, not retried
		err = fmt.Errorf("unknown card type %q", card.Type)
		p.fail(card, err)
		return err
	}

	text, err := Retry(ctx, p.attempts, nil, func(ctx context.Context) (string, error) {
		return extractor.Extract(ctx, adapter.Request{Card: card, ScratchDir: scratchDir})
	})
	metrics.ObserveExtraction(string(card.Type), time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		p.fail(card, err)
		return err
	}

	// The commit is retried as a whole unit, re-chunking and re-embedding
	// included.
	if _, err = Retry(ctx, p.attempts, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.ingester.Commit(ctx, card, text)
	}); err != nil {
		log.Error().Err(err).Msg("commit failed")
		p.fail(card, err)
		return err
	}

	metrics.IncCardProcessed(string(model.CardStatusCompleted), string(card.Type))
	log.Info().Dur("duration_ms", time.Since(start)).Msg("card processed")
	return nil
}

// fail records the failure on the card. Uses a background context so a
// cancelled job context cannot block the status write.
func (p *CardProcessor) fail(card *model.Card, cause error) {
	metrics.IncCardProcessed(string(model.CardStatusFailed), string(card.Type))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.cards.MarkFailed(ctx, card.ID, cause.Error()); err != nil {
		p.log.Error().Err(err).Str("card_id", card.ID).Msg("could not mark card failed")
	}
}
