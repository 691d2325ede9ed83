// Package ledger records which posts have already been published.
//
// Membership is the only thing preventing a duplicate publication, so an id is
// never removed once added and every Add is persisted before it returns.
package ledger

import (
	"context"
	"errors"
)

// Ledger is the persisted set of published post ids.
type Ledger interface {
	// Contains reports whether id was already published.
	Contains(id string) bool
	// Add records id and persists the whole ledger before returning.
	Add(ctx context.Context, id string) error
	// IDs returns all recorded ids in ascending order.
	IDs() []string
	// Path is the on-disk location handed to the state sync.
	Path() string
	Close() error
}

// ErrCorrupt is returned when a ledger exists but cannot be decoded.
var ErrCorrupt = errors.New("ledger is corrupt")

// ErrEmptyID is returned by Add for a blank id.
var ErrEmptyID = errors.New("publish id is empty")
