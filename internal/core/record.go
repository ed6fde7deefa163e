package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultDescription is substituted for blank or missing descriptions.
const DefaultDescription = "Other"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingID        = errors.New("missing record id")
	ErrFutureTimestamp  = errors.New("timestamp is in the future")
	ErrMissingTimestamp = errors.New("missing timestamp")
)

// Record is one expense entry. The ID is assigned by the store on creation
// and, like Author, never changes afterwards. The engine only ever holds
// read-through copies obtained from snapshots.
type Record struct {
	ID          string
	Description string
	Amount      Money
	Author      string
	Timestamp   time.Time
}

// Validate checks the invariants a record must satisfy before a create or
// update intent may be issued for it. now bounds the timestamp from above;
// back-dating is allowed, forward-dating is not.
func (r Record) Validate(now time.Time) error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if r.Timestamp.After(now) {
		return ErrFutureTimestamp
	}
	return nil
}

// NormalizeDescription trims the description and substitutes
// DefaultDescription when nothing is left.
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDescription
	}
	return s
}
