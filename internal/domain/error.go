package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidExecContext   = errors.New("invalid executor context")
	ErrReadDatabaseRow      = errors.New("could not read database row")
	ErrNoExtractableContent = errors.New("no extractable content found")
	ErrDownloadTimeout      = errors.New("download did not finish in time")
	ErrRateLimited          = errors.New("retry rate limit active")
	ErrNotRetryable         = errors.New("card is not in a failed state")
	ErrEmptyQueue           = errors.New("no job record available")
)
