package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/adapter"
	"card-index-pipeline/internal/domain/ports/repository"
)

//
// ---------------- in-memory fakes ----------------
//

type memCardRepo struct {
	mu    sync.Mutex
	cards map[string]*model.Card

	markProcessingCalls int
	errMarkProcessing   error
	panicMarkProcessing bool
}

func newMemCardRepo(cards ...*model.Card) *memCardRepo {
	m := &memCardRepo{cards: map[string]*model.Card{}}
	for _, c := range cards {
		cp := *c
		m.cards[c.ID] = &cp
	}
	return m
}

func (m *memCardRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCardRepo) MarkProcessing(ctx context.Context, id string) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markProcessingCalls++
	if m.panicMarkProcessing {
		panic("status flip exploded")
	}
	if m.errMarkProcessing != nil {
		return nil, m.errMarkProcessing
	}
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Status = model.CardStatusProcessing
	c.ErrorMessage = ""
	cp := *c
	return &cp, nil
}

func (m *memCardRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = model.CardStatusFailed
	c.ErrorMessage = errMsg
	return nil
}

func (m *memCardRepo) SaveProcessed(ctx context.Context, _ repository.Tx, id string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = model.CardStatusCompleted
	c.ProcessedContent = content
	return nil
}

func (m *memCardRepo) get(id string) *model.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.cards[id]
	return &cp
}

type memIngester struct {
	mu        sync.Mutex
	committed map[string]string
	errCommit error
}

func newMemIngester() *memIngester { return &memIngester{committed: map[string]string{}} }

func (m *memIngester) Commit(ctx context.Context, card *model.Card, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCommit != nil {
		return m.errCommit
	}
	m.committed[card.ID] = text
	// the real ingester flips status inside its transaction
	card.Status = model.CardStatusCompleted
	return nil
}

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

//
// ---------------- tests ----------------
//

func TestProcessCompletesCard(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeText, Source: "hello world", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	ingester := newMemIngester()
	registry := adapter.Registry{
		model.CardTypeText: adapter.ExtractorFunc(func(_ context.Context, req adapter.Request) (string, error) {
			return req.Card.Source, nil
		}),
	}

	p := NewCardProcessor(repo, registry, ingester, 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeText}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := ingester.committed["c1"]; got != "hello world" {
		t.Fatalf("committed text = %q", got)
	}
	if st := repo.get("c1").Status; st == model.CardStatusFailed {
		t.Fatalf("card should not be failed, got %s", st)
	}
}

func TestProcessSkipsSpotify(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeSpotify, Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	p := NewCardProcessor(repo, adapter.Registry{}, newMemIngester(), 1, newTestLogger())

	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeSpotify}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if repo.markProcessingCalls != 0 {
		t.Fatal("spotify cards must never be marked processing")
	}
	if st := repo.get("c1").Status; st != model.CardStatusPending {
		t.Fatalf("spotify card left pending state: %s", st)
	}
}

func TestProcessMarksFailedOnExtractionError(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeURL, Source: "https://example.com", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	registry := adapter.Registry{
		model.CardTypeURL: adapter.ExtractorFunc(func(context.Context, adapter.Request) (string, error) {
			return "", errors.New("page load timed out")
		}),
	}

	p := NewCardProcessor(repo, registry, newMemIngester(), 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeURL}); err == nil {
		t.Fatal("want error")
	}

	got := repo.get("c1")
	if got.Status != model.CardStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "page load timed out") {
		t.Fatalf("errorMessage = %q", got.ErrorMessage)
	}
}

func TestProcessRetriesTransientExtraction(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeText, Source: "src", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	ingester := newMemIngester()

	calls := 0
	registry := adapter.Registry{
		model.CardTypeText: adapter.ExtractorFunc(func(context.Context, adapter.Request) (string, error) {
			calls++
			if calls < 2 {
				return "", errors.New("transient")
			}
			return "recovered", nil
		}),
	}

	// attempts=2 keeps the test fast: a single 1s backoff between tries.
	p := NewCardProcessor(repo, registry, ingester, 2, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeText}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if calls != 2 {
		t.Fatalf("extractor calls = %d, want 2", calls)
	}
	if ingester.committed["c1"] != "recovered" {
		t.Fatalf("committed = %q", ingester.committed["c1"])
	}
}

func TestProcessMarksFailedOnCommitError(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeText, Source: "src", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	ingester := newMemIngester()
	ingester.errCommit = errors.New("insert chunks: connection reset")
	registry := adapter.Registry{
		model.CardTypeText: adapter.ExtractorFunc(func(context.Context, adapter.Request) (string, error) {
			return "text", nil
		}),
	}

	p := NewCardProcessor(repo, registry, ingester, 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeText}); err == nil {
		t.Fatal("want error")
	}
	if got := repo.get("c1"); got.Status != model.CardStatusFailed || got.ErrorMessage == "" {
		t.Fatalf("card = %+v", got)
	}
}

func TestProcessFailsUnknownType(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardType("bogus"), Status: model.CardStatusPending}
	repo := newMemCardRepo(card)

	p := NewCardProcessor(repo, adapter.Registry{}, newMemIngester(), 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: "bogus"}); err == nil {
		t.Fatal("want error")
	}
	if got := repo.get("c1"); got.Status != model.CardStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestProcessScratchDirLifecycle(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypePDF, Source: "s3://key", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	ingester := newMemIngester()

	var seenDir string
	registry := adapter.Registry{
		model.CardTypePDF: adapter.ExtractorFunc(func(_ context.Context, req adapter.Request) (string, error) {
			seenDir = req.ScratchDir
			if seenDir == "" {
				return "", errors.New("scratch dir missing")
			}
			if _, err := os.Stat(seenDir); err != nil {
				return "", err
			}
			return "pdf text", nil
		}),
	}

	p := NewCardProcessor(repo, registry, ingester, 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypePDF}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if seenDir == "" {
		t.Fatal("extractor never saw a scratch dir")
	}
	if _, err := os.Stat(seenDir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed after processing, stat err=%v", err)
	}
}

func TestProcessRecoversPanic(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeText, Source: "src", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	registry := adapter.Registry{
		model.CardTypeText: adapter.ExtractorFunc(func(context.Context, adapter.Request) (string, error) {
			panic("extractor blew up")
		}),
	}

	p := NewCardProcessor(repo, registry, newMemIngester(), 1, newTestLogger())
	_ = p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeText})

	got := repo.get("c1")
	if got.Status != model.CardStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "panic") {
		t.Fatalf("errorMessage = %q", got.ErrorMessage)
	}
}

func TestProcessRecoversPanicInStatusFlip(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeText, Source: "src", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)
	repo.panicMarkProcessing = true

	p := NewCardProcessor(repo, adapter.Registry{}, newMemIngester(), 1, newTestLogger())
	err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeText})
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
	// No card was loaded before the panic, so nothing may be written back.
	if st := repo.get("c1").Status; st != model.CardStatusPending {
		t.Fatalf("status = %s, want pending", st)
	}
}

func TestProcessScratchDirRemovedOnFailure(t *testing.T) {
	card := &model.Card{ID: "c1", Type: model.CardTypeAudio, Source: "s3://key", Status: model.CardStatusPending}
	repo := newMemCardRepo(card)

	var seenDir string
	registry := adapter.Registry{
		model.CardTypeAudio: adapter.ExtractorFunc(func(_ context.Context, req adapter.Request) (string, error) {
			seenDir = req.ScratchDir
			return "", errors.New("transcription timed out")
		}),
	}

	p := NewCardProcessor(repo, registry, newMemIngester(), 1, newTestLogger())
	if err := p.Process(context.Background(), &model.CardJob{CardID: "c1", CardType: model.CardTypeAudio}); err == nil {
		t.Fatal("want error")
	}
	if got := repo.get("c1"); got.Status != model.CardStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if seenDir == "" {
		t.Fatal("extractor never saw a scratch dir")
	}
	if _, err := os.Stat(seenDir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed after a failed run, stat err=%v", err)
	}
}
