package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"card-index-pipeline/internal/domain/model"
)

func TestAssembleBuildsContextFromNeighbors(t *testing.T) {
	chunks := newMemChunkRepo()
	chunks.searchHits = []model.ScoredChunk{
		{CardID: "card-a", Order: 5, ChunkText: "direct hit", Similarity: 0.91},
		{CardID: "card-b", Order: 1, ChunkText: "second hit", Similarity: 0.74},
		{CardID: "card-a", Order: 9, ChunkText: "another from a", Similarity: 0.55},
	}
	chunks.neighborChunks = []model.ScoredChunk{
		{CardID: "card-a", Order: 3, ChunkText: "before"},
		{CardID: "card-a", Order: 4, ChunkText: "lead-in"},
		{CardID: "card-a", Order: 5, ChunkText: "direct hit"},
		{CardID: "card-b", Order: 1, ChunkText: "second hit"},
	}

	uc := NewContextUseCase(chunks, &stubEmbedder{}, newTestLogger())
	res, err := uc.Assemble(context.Background(), "chat-1", "what is this about")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	want := "[before]\n\n[lead-in]\n\n[direct hit]\n\n[second hit]"
	if res.Context != want {
		t.Fatalf("context = %q, want %q", res.Context, want)
	}

	// score order, each card once
	if len(res.ReferencedCardIDs) != 2 || res.ReferencedCardIDs[0] != "card-a" || res.ReferencedCardIDs[1] != "card-b" {
		t.Fatalf("referenced cards = %v", res.ReferencedCardIDs)
	}

	if chunks.gotChatID != "chat-1" {
		t.Fatalf("chatID = %q", chunks.gotChatID)
	}
	if chunks.gotThreshold != 0.3 || chunks.gotLimit != 5 {
		t.Fatalf("search params: threshold=%v limit=%d", chunks.gotThreshold, chunks.gotLimit)
	}
	if chunks.gotWindow != 2 || len(chunks.gotHits) != 3 {
		t.Fatalf("neighbor params: window=%d hits=%d", chunks.gotWindow, len(chunks.gotHits))
	}
}

func TestAssembleEmptyWhenNothingRelevant(t *testing.T) {
	chunks := newMemChunkRepo()
	uc := NewContextUseCase(chunks, &stubEmbedder{}, newTestLogger())

	res, err := uc.Assemble(context.Background(), "chat-1", "unrelated question")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if res.Context != "" || len(res.ReferencedCardIDs) != 0 {
		t.Fatalf("want empty result, got %+v", res)
	}
	if chunks.gotHits != nil {
		t.Fatal("neighbor expansion must be skipped with no hits")
	}
}

func TestAssemblePropagatesSearchError(t *testing.T) {
	chunks := newMemChunkRepo()
	chunks.searchErr = errors.New("connection refused")
	uc := NewContextUseCase(chunks, &stubEmbedder{}, newTestLogger())

	if _, err := uc.Assemble(context.Background(), "chat-1", "q"); err == nil {
		t.Fatal("want error")
	}
}

func TestAssemblePropagatesEmbedError(t *testing.T) {
	chunks := newMemChunkRepo()
	uc := NewContextUseCase(chunks, &stubEmbedder{err: errors.New("quota exceeded")}, newTestLogger())

	if _, err := uc.Assemble(context.Background(), "chat-1", "q"); err == nil {
		t.Fatal("want error")
	}
}

func TestPromptWithContext(t *testing.T) {
	p := PromptWithContext("[some chunk]", "what is X?", "")
	if !strings.Contains(p, "[some chunk]") || !strings.Contains(p, "what is X?") || !strings.Contains(p, "No chat history") {
		t.Fatalf("prompt missing parts:\n%s", p)
	}

	p = PromptWithContext("ctx", "q", "user: earlier question")
	if !strings.Contains(p, "user: earlier question") || strings.Contains(p, "No chat history") {
		t.Fatalf("history not substituted:\n%s", p)
	}
}
