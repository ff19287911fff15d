package redis

import (
	"context"
	"time"
)

const retryGuardPrefix = "card_retry:"

// RetryGuard rate-limits manual re-submission of a failed card: one retry per
// card per window, enforced with a short-lived SETNX key.
type RetryGuard struct {
	client *Client
	window time.Duration
}

func NewRetryGuard(client *Client, window time.Duration) *RetryGuard {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &RetryGuard{client: client, window: window}
}

// Allow claims the card's retry slot. Returns false when a previous retry is
// still inside the window.
func (g *RetryGuard) Allow(ctx context.Context, cardID string) (bool, error) {
	return g.client.SetNX(ctx, retryGuardPrefix+cardID, time.Now().UnixMilli(), g.window)
}
