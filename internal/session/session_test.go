package session

import (
	"errors"
	"testing"
	"time"

	"tracker/internal/core"
)

var now = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func editable() core.Record {
	return core.Record{
		ID:          "r2",
		Description: "Coffee",
		Amount:      core.Money{Cents: 500},
		Author:      "Alice",
		Timestamp:   now.Add(-48 * time.Hour),
	}
}

func TestStageTransitions(t *testing.T) {
	s := New()
	if s.Mode() != ModeIdle {
		t.Fatalf("new session should be idle, got %s", s.Mode())
	}

	s.Stage(Draft{Amount: "12.50"})
	if s.Mode() != ModeComposing {
		t.Fatalf("staging input should enter composing, got %s", s.Mode())
	}

	s.Stage(Draft{})
	if s.Mode() != ModeIdle {
		t.Fatalf("clearing input should return to idle, got %s", s.Mode())
	}
}

func TestBeginEditSeedsFromRecord(t *testing.T) {
	s := New()
	s.BeginEdit(editable())

	if s.Mode() != ModeEditing || s.TargetID() != "r2" {
		t.Fatalf("unexpected state: %+v", s.State())
	}
	d := s.Draft()
	if d.Description != "Coffee" || d.Amount != "5.00" || !d.Timestamp.Equal(now.Add(-48*time.Hour)) {
		t.Fatalf("draft not seeded from record: %+v", d)
	}

	// Staging during an edit keeps mode and target.
	s.Stage(Draft{Description: "Coffee", Amount: "8.00", Timestamp: d.Timestamp})
	if s.Mode() != ModeEditing || s.TargetID() != "r2" {
		t.Fatalf("staging must not leave editing: %+v", s.State())
	}
}

func TestReconcileForcesIdleWhenTargetVanishes(t *testing.T) {
	s := New()
	s.BeginEdit(editable())
	s.Stage(Draft{Description: "Coffee", Amount: "8.00", Timestamp: now})

	reset := s.Reconcile(func(id string) bool { return id != "r2" })
	if !reset {
		t.Fatal("expected a forced reset")
	}
	if s.Mode() != ModeIdle || s.TargetID() != "" || !s.Draft().isEmpty() {
		t.Fatalf("session not cleared: %+v", s.State())
	}
}

func TestReconcileNoopWhenTargetPresent(t *testing.T) {
	s := New()
	s.BeginEdit(editable())

	if s.Reconcile(func(string) bool { return true }) {
		t.Fatal("present target must not reset the session")
	}
	if s.Mode() != ModeEditing {
		t.Fatalf("expected editing, got %s", s.Mode())
	}

	idle := New()
	if idle.Reconcile(func(string) bool { return false }) {
		t.Fatal("idle session has nothing to reconcile")
	}
}

func TestValidateDraft(t *testing.T) {
	cases := []struct {
		name    string
		draft   Draft
		cents   int64
		wantErr error
	}{
		{"valid", Draft{Amount: "5.00", Timestamp: now.Add(-time.Hour)}, 500, nil},
		{"zero", Draft{Amount: "0", Timestamp: now}, 0, core.ErrInvalidAmount},
		{"non numeric", Draft{Amount: "abc", Timestamp: now}, 0, core.ErrInvalidAmount},
		{"empty", Draft{Timestamp: now}, 0, core.ErrInvalidAmount},
		{"future date", Draft{Amount: "5", Timestamp: now.Add(time.Hour)}, 0, core.ErrFutureTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			s.Stage(tc.draft)
			before := s.State()

			cents, err := s.ValidateDraft(now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if cents != tc.cents {
				t.Fatalf("expected %d cents, got %d", tc.cents, cents)
			}
			if s.State() != before {
				t.Fatal("validation must not change session state")
			}
		})
	}
}
