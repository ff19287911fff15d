package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
)

// JobStream is the durable queue boundary the loop consumes from.
type JobStream interface {
	EnsureGroup(ctx context.Context) error
	ReadOne(ctx context.Context, block time.Duration) (*model.CardJob, error)
	Ack(ctx context.Context, messageID string) error
}

// Processor handles one dequeued job.
type Processor interface {
	Process(ctx context.Context, job *model.CardJob) error
}

// Consumer pulls job records from the stream under the worker's consumer
// group, acknowledges them immediately and dispatches processing without
// waiting for completion. The Governor tracks the outstanding work; the loop
// itself never blocks on a job.
type Consumer struct {
	stream    JobStream
	governor  *Governor
	processor Processor
	idleSleep time.Duration
	readBlock time.Duration
	log       *zerolog.Logger
}

func NewConsumer(stream JobStream, governor *Governor, processor Processor, idleSleep time.Duration, log *zerolog.Logger) *Consumer {
	if idleSleep <= 0 {
		idleSleep = 100 * time.Millisecond
	}
	return &Consumer{
		stream:    stream,
		governor:  governor,
		processor: processor,
		idleSleep: idleSleep,
		readBlock: time.Millisecond,
		log:       log,
	}
}

// Run consumes until ctx is cancelled. Jobs already dispatched are not
// awaited; shutdown is best-effort by design.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.stream.EnsureGroup(ctx); err != nil {
		return err
	}
	c.log.Info().Msg("card consumer started")

	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("card consumer stopping")
			return nil
		}

		if !c.governor.HasCapacity() {
			c.pause(ctx)
			continue
		}

		job, err := c.stream.ReadOne(ctx, c.readBlock)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyQueue) {
				c.pause(ctx)
				continue
			}
			if ctx.Err() != nil {
				c.log.Info().Msg("card consumer stopping")
				return nil
			}
			c.log.Error().Err(err).Msg("stream read failed")
			c.pause(ctx)
			continue
		}

		// Ack before processing: at-least-once, failures land on the card's
		// status rather than on queue redelivery.
		if err := c.stream.Ack(ctx, job.MessageID); err != nil {
			c.log.Error().Err(err).Str("message_id", job.MessageID).Msg("ack failed")
		}

		cost := c.governor.CostFor(job.CardType)
		c.governor.Admit(cost)
		c.log.Info().
			Str("card_id", job.CardID).
			Str("card_type", string(job.CardType)).
			Int("cost", cost).
			Int("active_units", c.governor.ActiveUnits()).
			Msg("card processing start")

		go func(job *model.CardJob) {
			defer c.governor.Release(cost)
			if err := c.processor.Process(ctx, job); err != nil {
				c.log.Debug().Err(err).Str("card_id", job.CardID).Msg("job finished with failure")
			}
		}(job)
	}
}

func (c *Consumer) pause(ctx context.Context) {
	timer := time.NewTimer(c.idleSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
