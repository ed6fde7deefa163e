package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tracker/internal/store"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "ledger.db"), nil, nil)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testFields(desc string, cents int64) store.Fields {
	return store.Fields{
		Description: desc,
		AmountCents: cents,
		Timestamp:   time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testFields("Lunch", 1234), "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Description != "Lunch" || rec.Amount != "12.34" || rec.Author != "Alice" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Timestamp != "2026-06-15T10:00:00Z" {
		t.Fatalf("unexpected timestamp: %q", rec.Timestamp)
	}
}

func TestUpdatePreservesAuthor(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testFields("Lunch", 1234), "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Update(ctx, id, testFields("Dinner", 2000)); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Description != "Dinner" || rec.Amount != "20.00" || rec.Author != "Alice" {
		t.Fatalf("unexpected record after update: %+v", rec)
	}
}

func TestUpdateMissing(t *testing.T) {
	repo := testRepo(t)
	if err := repo.Update(context.Background(), "999", testFields("x", 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscribeReceivesMutations(t *testing.T) {
	repo := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.SubscribeAll(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if snap := <-ch; len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", snap)
	}

	id, err := repo.Create(ctx, testFields("Lunch", 1234), "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	snap := <-ch
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("unexpected snapshot after create: %+v", snap)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snap = <-ch; len(snap) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %+v", snap)
	}
}

func TestDeleteAbsentRecord(t *testing.T) {
	repo := testRepo(t)
	if err := repo.Delete(context.Background(), "404"); err != nil {
		t.Fatalf("deleting an absent record must not fail: %v", err)
	}
}
