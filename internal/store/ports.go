// Package store defines the ports to the remote ledger store.
//
// The store delivers a full restatement of all current records on every
// change (a snapshot, not a diff), with no ordering guarantee inside a
// snapshot and at-least-once delivery per change. Mutations are
// fire-and-await with no partial application: a failed update leaves the
// remote record entirely unchanged.
package store

import (
	"context"
	"time"
)

// RawRecord is the loosely-typed wire shape of one record inside a
// snapshot. The shared collection may contain rows written by older client
// versions, so any field except ID may be blank or malformed; normalizing
// them is the ingest's job, never the store's.
type RawRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`    // decimal string, e.g. "12.34"
	Author      string `json:"author"`
	Timestamp   string `json:"timestamp"` // RFC3339
}

// Fields carries the mutable part of a record for create/update intents.
// ID and author are never part of an update.
type Fields struct {
	Description string
	AmountCents int64
	Timestamp   time.Time
}

// Ports for the remote store.
type (
	Subscriber interface {
		// SubscribeAll delivers the complete current record set on every
		// change. The channel closes when ctx is done.
		SubscribeAll(ctx context.Context) (<-chan []RawRecord, error)
	}

	Creator interface {
		// Create stores a new record and returns its store-assigned id.
		Create(ctx context.Context, fields Fields, author string) (string, error)
	}

	Updater interface {
		// Update replaces description, amount and timestamp of an existing
		// record.
		Update(ctx context.Context, id string, fields Fields) error
	}

	Deleter interface {
		Delete(ctx context.Context, id string) error
	}

	// Mutator groups the three mutation intents.
	Mutator interface {
		Creator
		Updater
		Deleter
	}

	// Store is the full remote-store contract.
	Store interface {
		Subscriber
		Mutator
	}
)
