package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/session"
	"tracker/internal/store"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// recordingMutator counts mutation intents and can fail on demand.
type recordingMutator struct {
	creates  int
	updates  int
	deletes  int
	failWith error
}

func (m *recordingMutator) Create(context.Context, store.Fields, string) (string, error) {
	m.creates++
	if m.failWith != nil {
		return "", m.failWith
	}
	return "new1", nil
}

func (m *recordingMutator) Update(context.Context, string, store.Fields) error {
	m.updates++
	return m.failWith
}

func (m *recordingMutator) Delete(context.Context, string) error {
	m.deletes++
	return m.failWith
}

func newTestController(m store.Mutator) *Controller {
	return New(m, "Alice", nil).WithClock(func() time.Time { return testNow })
}

func raw(id, amount, ts string) store.RawRecord {
	return store.RawRecord{ID: id, Description: "d " + id, Amount: amount, Author: "Alice", Timestamp: ts}
}

func janFebSnapshot() []store.RawRecord {
	return []store.RawRecord{
		raw("1", "10.00", "2026-01-05T10:00:00Z"),
		raw("2", "5.00", "2026-01-20T10:00:00Z"),
		raw("3", "7.00", "2026-02-01T10:00:00Z"),
	}
}

func TestApplySnapshotBuildsIndex(t *testing.T) {
	c := newTestController(&recordingMutator{})
	c.ApplySnapshot(janFebSnapshot())

	view := c.CurrentView()
	if len(view.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(view.Groups))
	}
	feb, jan := view.Groups[0], view.Groups[1]
	if feb.Total.Cents != 700 || len(feb.Entries) != 1 || feb.Entries[0].ID != "3" {
		t.Fatalf("unexpected Feb group: %+v", feb)
	}
	if jan.Total.Cents != 1500 || jan.Entries[0].ID != "2" || jan.Entries[1].ID != "1" {
		t.Fatalf("unexpected Jan group: %+v", jan)
	}
	if view.Session.Mode != session.ModeIdle {
		t.Fatalf("expected idle session, got %s", view.Session.Mode)
	}
}

func TestDuplicateSnapshotIsNoop(t *testing.T) {
	c := newTestController(&recordingMutator{})
	c.ApplySnapshot(janFebSnapshot())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := c.Watch(ctx)
	<-views // snapshot of registration

	c.BeginEdit("2")
	<-views

	// Same records, different order: identical fingerprint.
	reordered := []store.RawRecord{
		raw("3", "7.00", "2026-02-01T10:00:00Z"),
		raw("1", "10.00", "2026-01-05T10:00:00Z"),
		raw("2", "5.00", "2026-01-20T10:00:00Z"),
	}
	c.ApplySnapshot(reordered)

	view := c.CurrentView()
	if view.Session.Mode != session.ModeEditing || view.Session.TargetID != "2" {
		t.Fatalf("duplicate snapshot changed the session: %+v", view.Session)
	}
	select {
	case v := <-views:
		t.Fatalf("duplicate snapshot emitted a view: %+v", v.Session)
	default:
	}
}

func TestForcedTransitionOnRemoteDelete(t *testing.T) {
	m := &recordingMutator{}
	c := newTestController(m)
	c.ApplySnapshot(janFebSnapshot())

	if err := c.BeginEdit("2"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	c.Stage(session.Draft{Description: "d 2", Amount: "8.00", Timestamp: testNow.Add(-time.Hour)})

	// id 2 deleted elsewhere.
	c.ApplySnapshot([]store.RawRecord{
		raw("1", "10.00", "2026-01-05T10:00:00Z"),
		raw("3", "7.00", "2026-02-01T10:00:00Z"),
	})

	view := c.CurrentView()
	if view.Session.Mode != session.ModeIdle || view.Session.TargetID != "" {
		t.Fatalf("expected forced idle, got %+v", view.Session)
	}
	if view.Session.Draft != (session.Draft{}) {
		t.Fatalf("staged fields must be discarded, got %+v", view.Session.Draft)
	}

	// A stale commit for the vanished record must never reach the store.
	err := c.CommitUpdate(context.Background())
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if m.updates != 0 {
		t.Fatalf("update call issued for deleted record: %d", m.updates)
	}
}

func TestCommitCreateValidation(t *testing.T) {
	for _, amount := range []string{"0", "abc", ""} {
		m := &recordingMutator{}
		c := newTestController(m)
		draft := session.Draft{Description: "Lunch", Amount: amount}
		c.Stage(draft)

		err := c.CommitCreate(context.Background())
		if KindOf(err) != KindValidation {
			t.Fatalf("%q: expected validation error, got %v", amount, err)
		}
		if m.creates != 0 {
			t.Fatalf("%q: store call issued despite invalid amount", amount)
		}
		view := c.CurrentView()
		if view.Session.Mode != session.ModeComposing || view.Session.Draft != draft {
			t.Fatalf("%q: session must stay composing with fields intact, got %+v", amount, view.Session)
		}
	}
}

func TestCommitCreateSuccessResetsSession(t *testing.T) {
	m := &recordingMutator{}
	c := newTestController(m)
	c.Stage(session.Draft{Description: "Lunch", Amount: "12.50"})

	if err := c.CommitCreate(context.Background()); err != nil {
		t.Fatalf("commit create: %v", err)
	}
	if m.creates != 1 {
		t.Fatalf("expected one create call, got %d", m.creates)
	}
	view := c.CurrentView()
	if view.Session.Mode != session.ModeIdle || view.Session.Draft != (session.Draft{}) {
		t.Fatalf("session not reset after create: %+v", view.Session)
	}
	// The index must not contain the record speculatively; only the next
	// snapshot shows it.
	if len(view.Groups) != 0 {
		t.Fatalf("index updated speculatively: %+v", view.Groups)
	}
}

func TestCommitCreateTransportFailureKeepsDraft(t *testing.T) {
	m := &recordingMutator{failWith: errors.New("store unavailable")}
	c := newTestController(m)
	draft := session.Draft{Description: "Lunch", Amount: "12.50"}
	c.Stage(draft)

	err := c.CommitCreate(context.Background())
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindTransport || !ce.Retryable() {
		t.Fatalf("expected retryable transport error, got %v", err)
	}
	view := c.CurrentView()
	if view.Session.Mode != session.ModeComposing || view.Session.Draft != draft {
		t.Fatalf("draft lost on transport failure: %+v", view.Session)
	}
}

func TestCommitUpdateTransportFailurePreservesEdit(t *testing.T) {
	m := &recordingMutator{}
	c := newTestController(m)
	c.ApplySnapshot(janFebSnapshot())
	if err := c.BeginEdit("2"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	staged := session.Draft{Description: "d 2", Amount: "8.00", Timestamp: testNow.Add(-time.Hour)}
	c.Stage(staged)

	m.failWith = errors.New("store unavailable")
	err := c.CommitUpdate(context.Background())
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if m.updates != 1 {
		t.Fatalf("expected exactly one update attempt, got %d", m.updates)
	}
	view := c.CurrentView()
	if view.Session.Mode != session.ModeEditing || view.Session.TargetID != "2" || view.Session.Draft != staged {
		t.Fatalf("edit state must survive the failure: %+v", view.Session)
	}

	// Retry after the store recovers.
	m.failWith = nil
	if err := c.CommitUpdate(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := c.CurrentView().Session.Mode; got != session.ModeIdle {
		t.Fatalf("expected idle after successful retry, got %s", got)
	}
}

func TestCommitDeleteClearsEditEvenOnFailure(t *testing.T) {
	m := &recordingMutator{failWith: errors.New("store unavailable")}
	c := newTestController(m)
	c.ApplySnapshot(janFebSnapshot())
	if err := c.BeginEdit("2"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	err := c.CommitDelete(context.Background(), "2")
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	view := c.CurrentView()
	if view.Session.Mode != session.ModeIdle {
		t.Fatalf("confirmed delete must clear the edit session regardless of outcome: %+v", view.Session)
	}
}

func TestBeginEditUnknownRecord(t *testing.T) {
	c := newTestController(&recordingMutator{})
	err := c.BeginEdit("ghost")
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitCreateWithoutIdentity(t *testing.T) {
	m := &recordingMutator{}
	c := New(m, "", nil).WithClock(func() time.Time { return testNow })
	c.Stage(session.Draft{Amount: "5.00"})

	err := c.CommitCreate(context.Background())
	if KindOf(err) != KindSetup {
		t.Fatalf("expected setup error, got %v", err)
	}
	if m.creates != 0 {
		t.Fatal("no store call may happen without an identity")
	}
}

func TestRunAppliesSnapshotsInOrder(t *testing.T) {
	c := newTestController(&recordingMutator{})

	ch := make(chan []store.RawRecord, 2)
	ch <- janFebSnapshot()
	ch <- []store.RawRecord{raw("3", "7.00", "2026-02-01T10:00:00Z")}
	close(ch)

	if err := c.Run(context.Background(), subscriberFunc(ch)); err != nil {
		t.Fatalf("run: %v", err)
	}
	view := c.CurrentView()
	if len(view.Groups) != 1 || view.Groups[0].Entries[0].ID != "3" {
		t.Fatalf("expected only the last snapshot's state, got %+v", view.Groups)
	}
}

type subscriberFunc <-chan []store.RawRecord

func (s subscriberFunc) SubscribeAll(context.Context) (<-chan []store.RawRecord, error) {
	return s, nil
}
