// Package id generates identifiers: time-sortable ULIDs for ledger records
// and random UUIDs for everything that only needs to be unique.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a ULID for t. IDs created within the same millisecond
// still sort in creation order.
func NewULID(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.UTC()), entropy).String()
}

// New returns a ULID for the current time.
func New() string {
	return NewULID(time.Now())
}

// NewUUID returns a random UUID string.
func NewUUID() string {
	return uuid.NewString()
}
