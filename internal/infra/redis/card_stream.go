package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

const (
	fieldCardID   = "card_id"
	fieldCardType = "card_type"
)

// streamCommands is the slice of Client the queue uses.
type streamCommands interface {
	XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error)
	XGroupCreateMkStream(ctx context.Context, stream, group string) error
	XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error
}

// CardStream is the durable job queue: an append-only Redis stream consumed
// through a named group so concurrent worker processes never receive
// duplicate records from the live position.
type CardStream struct {
	client   streamCommands
	stream   string
	group    string
	consumer string
}

func NewCardStream(client *Client, stream, group, consumer string) *CardStream {
	return &CardStream{client: client, stream: stream, group: group, consumer: consumer}
}

// Enqueue appends one job record for the card.
func (s *CardStream) Enqueue(ctx context.Context, cardID string, cardType model.CardType) error {
	_, err := s.client.XAdd(ctx, s.stream, map[string]interface{}{
		fieldCardID:   cardID,
		fieldCardType: string(cardType),
	})
	return err
}

// EnsureGroup creates the consumer group, creating the stream alongside it if
// needed. A group that already exists is not an error.
func (s *CardStream) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group)
	if err != nil && strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// ReadOne blocks up to `block` for a single unacknowledged record from the
// live position. Returns domain.ErrEmptyQueue when none arrived in time.
func (s *CardStream) ReadOne(ctx context.Context, block time.Duration) (*model.CardJob, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    1,
		Block:    block,
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrEmptyQueue
		}
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, domain.ErrEmptyQueue
	}

	msg := streams[0].Messages[0]
	job := &model.CardJob{MessageID: msg.ID}
	if v, ok := msg.Values[fieldCardID].(string); ok {
		job.CardID = v
	}
	if v, ok := msg.Values[fieldCardType].(string); ok {
		job.CardType = model.CardType(v)
	}
	if job.CardID == "" {
		// Ack malformed records so they do not pile up in the group's
		// pending list; the caller skips them like an empty read.
		_ = s.client.XAck(ctx, s.stream, s.group, msg.ID)
		return nil, domain.ErrInvalidArgument
	}
	return job, nil
}

// Ack acknowledges the record. Called before processing completes:
// delivery is at-least-once and processing failures are captured on the
// card's status, not by queue redelivery.
func (s *CardStream) Ack(ctx context.Context, messageID string) error {
	return s.client.XAck(ctx, s.stream, s.group, messageID)
}
