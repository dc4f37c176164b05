package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrLockHeld         = errors.New("lock already held")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidMarket    = errors.New("invalid market key")
	ErrContextDone      = errors.New("context cancelled")
)
