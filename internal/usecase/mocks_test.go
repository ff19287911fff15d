package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/domain/model"
	"card-index-pipeline/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// ---------------- tx manager ----------------

type txMarker struct{}

type mockTxManager struct{ calls int }

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	return fn(ctx, txMarker{})
}

// ---------------- card repo ----------------

type memCardRepo struct {
	cards map[string]*model.Card

	savedContent map[string]string
	savedInTx    bool
}

func newMemCardRepo(cards ...*model.Card) *memCardRepo {
	m := &memCardRepo{cards: map[string]*model.Card{}, savedContent: map[string]string{}}
	for _, c := range cards {
		cp := *c
		m.cards[c.ID] = &cp
	}
	return m
}

func (m *memCardRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCardRepo) MarkProcessing(ctx context.Context, id string) (*model.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Status = model.CardStatusProcessing
	cp := *c
	return &cp, nil
}

func (m *memCardRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	c, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = model.CardStatusFailed
	c.ErrorMessage = errMsg
	return nil
}

func (m *memCardRepo) SaveProcessed(ctx context.Context, tx repository.Tx, id string, content string) error {
	c, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	_, m.savedInTx = tx.(txMarker)
	c.Status = model.CardStatusCompleted
	c.ProcessedContent = content
	m.savedContent[id] = content
	return nil
}

// ---------------- chunk repo ----------------

type memChunkRepo struct {
	byCard map[string][]*model.Chunk

	deleteCalls  int
	deletedInTx  bool
	insertedInTx bool

	searchHits     []model.ScoredChunk
	searchErr      error
	gotChatID      string
	gotThreshold   float64
	gotLimit       int
	neighborChunks []model.ScoredChunk
	gotHits        []model.ScoredChunk
	gotWindow      int
}

func newMemChunkRepo() *memChunkRepo { return &memChunkRepo{byCard: map[string][]*model.Chunk{}} }

func (m *memChunkRepo) DeleteByCard(ctx context.Context, tx repository.Tx, cardID string) error {
	m.deleteCalls++
	_, m.deletedInTx = tx.(txMarker)
	delete(m.byCard, cardID)
	return nil
}

func (m *memChunkRepo) InsertBatch(ctx context.Context, tx repository.Tx, chunks []*model.Chunk) error {
	_, m.insertedInTx = tx.(txMarker)
	for _, c := range chunks {
		cp := *c
		m.byCard[c.CardID] = append(m.byCard[c.CardID], &cp)
	}
	return nil
}

func (m *memChunkRepo) SearchSimilar(ctx context.Context, chatID string, _ pgvector.Vector, threshold float64, limit int) ([]model.ScoredChunk, error) {
	m.gotChatID = chatID
	m.gotThreshold = threshold
	m.gotLimit = limit
	return m.searchHits, m.searchErr
}

func (m *memChunkRepo) FetchNeighbors(ctx context.Context, hits []model.ScoredChunk, window int) ([]model.ScoredChunk, error) {
	m.gotHits = hits
	m.gotWindow = window
	return m.neighborChunks, nil
}

// ---------------- embedder ----------------

// stubEmbedder yields a deterministic vector per input so order preservation
// is checkable.
type stubEmbedder struct {
	dim     int
	calls   int
	lastIn  []string
	err     error
	perText func(i int, text string) []float32
}

func (e *stubEmbedder) vector(i int, text string) []float32 {
	if e.perText != nil {
		return e.perText(i, text)
	}
	return []float32{float32(i), float32(len(text))}
}

func (e *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(0, text), nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.lastIn = append([]string(nil), texts...)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(i, t)
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int {
	if e.dim > 0 {
		return e.dim
	}
	return 2
}

// ---------------- queue + limiter ----------------

type memQueue struct {
	enqueued []string
	err      error
}

func (q *memQueue) Enqueue(ctx context.Context, cardID string, cardType model.CardType) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, fmt.Sprintf("%s/%s", cardID, cardType))
	return nil
}

type stubLimiter struct {
	allow bool
	err   error
}

func (l *stubLimiter) Allow(ctx context.Context, cardID string) (bool, error) {
	return l.allow, l.err
}

// ---------------- object storage ----------------

type stubStorage struct {
	presigned map[string]string
	fetchErr  error
}

func (s *stubStorage) PresignDownload(ctx context.Context, objectKey string) (string, error) {
	if url, ok := s.presigned[objectKey]; ok {
		return url, nil
	}
	return "https://storage.test/" + objectKey, nil
}

func (s *stubStorage) FetchToFile(ctx context.Context, objectKey, destPath string) error {
	return s.fetchErr
}
