package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded slice of a card's extracted text. Order is 1-based
// and contiguous within a card; the whole set is replaced wholesale on every
// successful run.
type Chunk struct {
	ID        string
	CardID    string
	ChunkText string
	Embedding pgvector.Vector
	Order     int
	CreatedAt time.Time
}

// ScoredChunk is a similarity-search hit.
type ScoredChunk struct {
	CardID     string
	ChunkText  string
	Order      int
	Similarity float64
}
