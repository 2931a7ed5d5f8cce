package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")

	// ErrConnection means a venue session could not be established. It is
	// fatal for the operation in progress only.
	ErrConnection      = errors.New("venue connection failed")
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrOrderRejected   = errors.New("order rejected")
	ErrTransientScrape = errors.New("transient scrape failure")

	ErrInvalidSignal  = errors.New("invalid signal")
	ErrUnknownAccount = errors.New("unknown account")
	ErrNoCredentials  = errors.New("no credentials")
)
