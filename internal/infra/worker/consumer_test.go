package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
)

type memStream struct {
	mu    sync.Mutex
	jobs  []*model.CardJob
	acked []string
}

func (s *memStream) EnsureGroup(ctx context.Context) error { return nil }

func (s *memStream) ReadOne(ctx context.Context, _ time.Duration) (*model.CardJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return nil, domain.ErrEmptyQueue
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *memStream) Ack(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, messageID)
	return nil
}

func (s *memStream) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	block     chan struct{} // when set, Process waits until closed
	err       error         // returned from every Process call
}

func (p *recordingProcessor) Process(ctx context.Context, job *model.CardJob) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.processed = append(p.processed, job.CardID)
	p.mu.Unlock()
	return p.err
}

func (p *recordingProcessor) processedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConsumerAcksAndDispatches(t *testing.T) {
	stream := &memStream{jobs: []*model.CardJob{
		{MessageID: "m1", CardID: "c1", CardType: model.CardTypeText},
		{MessageID: "m2", CardID: "c2", CardType: model.CardTypeURL},
	}}
	proc := &recordingProcessor{}
	c := NewConsumer(stream, NewGovernor(10, 10), proc, time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	waitFor(t, func() bool { return len(proc.processedIDs()) == 2 })
	cancel()

	acked := stream.ackedIDs()
	if len(acked) != 2 || acked[0] != "m1" || acked[1] != "m2" {
		t.Fatalf("acked = %v", acked)
	}
}

func TestConsumerStopsDequeueAtCapacity(t *testing.T) {
	// Limit 10: one heavy job saturates the governor, so the second job must
	// stay queued until the first completes.
	stream := &memStream{jobs: []*model.CardJob{
		{MessageID: "m1", CardID: "heavy", CardType: model.CardTypeYouTube},
		{MessageID: "m2", CardID: "light", CardType: model.CardTypeText},
	}}
	block := make(chan struct{})
	proc := &recordingProcessor{block: block}
	c := NewConsumer(stream, NewGovernor(10, 10), proc, time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// First job is acked and dispatched, then the loop stalls on capacity.
	waitFor(t, func() bool { return len(stream.ackedIDs()) == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := len(stream.ackedIDs()); got != 1 {
		t.Fatalf("second job dequeued while at capacity, acked=%d", got)
	}

	close(block)
	waitFor(t, func() bool { return len(proc.processedIDs()) == 2 })
	cancel()
}

func TestConsumerReleasesUnitsOnProcessorError(t *testing.T) {
	stream := &memStream{jobs: []*model.CardJob{
		{MessageID: "m1", CardID: "heavy", CardType: model.CardTypeYouTube},
		{MessageID: "m2", CardID: "light", CardType: model.CardTypeText},
	}}
	proc := &recordingProcessor{err: errors.New("extraction failed")}
	gov := NewGovernor(10, 10)
	c := NewConsumer(stream, gov, proc, time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	waitFor(t, func() bool { return len(proc.processedIDs()) == 2 })
	// Failed jobs refund their full cost, so the heavy job's units come back.
	waitFor(t, func() bool { return gov.ActiveUnits() == 0 })
	cancel()
}
