package model

// CardJob is a queue entry referencing a card to be processed. It exists
// only between enqueue and acknowledgment and is never persisted.
type CardJob struct {
	MessageID string
	CardID    string
	CardType  CardType
}
