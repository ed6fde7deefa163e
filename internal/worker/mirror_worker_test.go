package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/store"
	"tracker/internal/store/sqlite"
)

type recordedChange struct {
	op  string
	id  string
	rec store.RawRecord
}

type fakeJournal struct {
	changes []recordedChange
}

func (j *fakeJournal) AppendChange(_ context.Context, op string, id string, rec store.RawRecord) error {
	j.changes = append(j.changes, recordedChange{op: op, id: id, rec: rec})
	return nil
}

func testSetup(t *testing.T) (*sqlite.Repository, *fakeJournal, *MirrorWorker) {
	t.Helper()
	repo, err := sqlite.NewRepository(filepath.Join(t.TempDir(), "ledger.db"), nil, nil)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	journal := &fakeJournal{}
	return repo, journal, NewMirrorWorker(repo, journal, nil)
}

func TestHandleChangeCreate(t *testing.T) {
	repo, journal, w := testSetup(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, store.Fields{
		Description: "Lunch",
		AmountCents: 1200,
		Timestamp:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}, "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(id, amqp.OpCreate)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(journal.changes) != 1 {
		t.Fatalf("expected one journal row, got %d", len(journal.changes))
	}
	got := journal.changes[0]
	if got.op != amqp.OpCreate || got.id != id || got.rec.Description != "Lunch" || got.rec.Author != "Alice" {
		t.Fatalf("unexpected journal row: %+v", got)
	}
}

func TestHandleChangeForVanishedRecord(t *testing.T) {
	_, journal, w := testSetup(t)

	// A create notification whose record was deleted before the message
	// was processed journals as a delete.
	if err := w.HandleChange(context.Background(), amqp.NewChangeMessage("77", amqp.OpUpdate)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(journal.changes) != 1 || journal.changes[0].op != amqp.OpDelete {
		t.Fatalf("expected delete row, got %+v", journal.changes)
	}
}

func TestHandleChangeUnknownOp(t *testing.T) {
	_, journal, w := testSetup(t)

	if err := w.HandleChange(context.Background(), amqp.NewChangeMessage("1", "upsert")); err != nil {
		t.Fatalf("unknown op must be dropped, not retried: %v", err)
	}
	if len(journal.changes) != 0 {
		t.Fatalf("unknown op must not be journalled: %+v", journal.changes)
	}
}
