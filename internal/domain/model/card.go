package model

import "time"

type CardType string

const (
	CardTypeText    CardType = "text"
	CardTypeURL     CardType = "url"
	CardTypeTweet   CardType = "tweet"
	CardTypePDF     CardType = "pdf"
	CardTypeYouTube CardType = "youtube"
	CardTypeAudio   CardType = "audio"
	CardTypeSpotify CardType = "spotify"
)

// IsValid reports whether t is one of the known card types.
func (t CardType) IsValid() bool {
	switch t {
	case CardTypeText, CardTypeURL, CardTypeTweet, CardTypePDF,
		CardTypeYouTube, CardTypeAudio, CardTypeSpotify:
		return true
	}
	return false
}

// NeedsScratchDir reports whether processing this type stages files on disk.
func (t CardType) NeedsScratchDir() bool {
	switch t {
	case CardTypePDF, CardTypeYouTube, CardTypeAudio:
		return true
	}
	return false
}

type CardStatus string

const (
	CardStatusPending    CardStatus = "pending"
	CardStatusProcessing CardStatus = "processing"
	CardStatusCompleted  CardStatus = "completed"
	CardStatusFailed     CardStatus = "failed"
)

// Card is one unit of user-contributed content tracked through the
// ingestion pipeline. Its status is mutated exclusively by the worker;
// spotify cards are decorative and never leave pending.
type Card struct {
	ID               string
	IndexID          string
	Type             CardType
	Source           string
	ProcessedContent string
	Status           CardStatus
	ErrorMessage     string
	CreatedAt        time.Time
}
