// Package memory provides a map-backed Store for local development and
// tests. Every mutation triggers a full-snapshot broadcast to all
// subscribers; map iteration makes the record order inside a snapshot
// naturally arbitrary, matching the remote contract.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tracker/internal/core"
	"tracker/internal/store"
)

// ErrNotFound is returned for updates on records that do not exist.
var ErrNotFound = errors.New("record not found")

// Store is an in-memory store.Store implementation.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	records  map[string]store.RawRecord
	subs     map[int]chan []store.RawRecord
	nextSub  int
	failNext error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]store.RawRecord),
		subs:    make(map[int]chan []store.RawRecord),
	}
}

// SeedRaw inserts wire records verbatim, malformed fields included, and
// broadcasts the resulting snapshot. Records without an ID get one
// assigned.
func (s *Store) SeedRaw(recs ...store.RawRecord) {
	s.mu.Lock()
	for _, r := range recs {
		if r.ID == "" {
			r.ID = s.newIDLocked()
		}
		s.records[r.ID] = r
	}
	s.broadcastLocked()
	s.mu.Unlock()
}

// FailNext makes the next mutation fail with err. Test hook for transport
// failures.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// SubscribeAll implements store.Subscriber. The current snapshot is
// delivered immediately.
func (s *Store) SubscribeAll(ctx context.Context) (<-chan []store.RawRecord, error) {
	ch := make(chan []store.RawRecord, 64)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Create implements store.Creator.
func (s *Store) Create(_ context.Context, fields store.Fields, author string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailureLocked(); err != nil {
		return "", err
	}
	id := s.newIDLocked()
	s.records[id] = rawFromFields(id, fields, author)
	s.broadcastLocked()
	return id, nil
}

// Update implements store.Updater. The author field is preserved.
func (s *Store) Update(_ context.Context, id string, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailureLocked(); err != nil {
		return err
	}
	existing, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	s.records[id] = rawFromFields(id, fields, existing.Author)
	s.broadcastLocked()
	return nil
}

// Delete implements store.Deleter. Deleting an absent record is not an
// error, mirroring document-store semantics.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailureLocked(); err != nil {
		return err
	}
	delete(s.records, id)
	s.broadcastLocked()
	return nil
}

// Refresh re-broadcasts the current snapshot without any change, the
// pull-to-refresh analog. Also exercises duplicate-delivery handling
// downstream.
func (s *Store) Refresh() {
	s.mu.Lock()
	s.broadcastLocked()
	s.mu.Unlock()
}

// Len returns the current record count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) newIDLocked() string {
	s.nextID++
	return fmt.Sprintf("m%04d", s.nextID)
}

func (s *Store) takeFailureLocked() error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) snapshotLocked() []store.RawRecord {
	out := make([]store.RawRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

func (s *Store) broadcastLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Snapshots are full restatements, so a consumer this far
			// behind loses nothing it cannot recover from the next one.
		}
	}
}

func rawFromFields(id string, fields store.Fields, author string) store.RawRecord {
	return store.RawRecord{
		ID:          id,
		Description: fields.Description,
		Amount:      core.Money{Cents: fields.AmountCents}.String(),
		Author:      author,
		Timestamp:   fields.Timestamp.UTC().Format(time.RFC3339),
	}
}
