// Package session tracks the single in-flight local edit.
//
// At most one edit exists at a time: either the add form is being composed
// (no target record) or one existing record is being edited. Staged draft
// values stay independent of the live record until a commit succeeds.
package session

import (
	"time"

	"tracker/internal/core"
)

// Mode is the state of the edit session.
type Mode string

const (
	// ModeIdle is the resting state: no staged input.
	ModeIdle Mode = "idle"
	// ModeComposing means the add form holds staged input for a new record.
	ModeComposing Mode = "composing"
	// ModeEditing means an existing record's values are staged for update.
	ModeEditing Mode = "editing"
)

// Draft holds the staged field values for a create or update in progress.
// Amount stays a string until commit validation so the user's raw input
// survives a failed attempt unchanged.
type Draft struct {
	Description string
	Amount      string
	Timestamp   time.Time
}

func (d Draft) isEmpty() bool {
	return d.Description == "" && d.Amount == "" && d.Timestamp.IsZero()
}

// State is an immutable copy of the session, safe to hand to the
// presentation layer.
type State struct {
	Mode     Mode
	TargetID string
	Draft    Draft
}

// Session is the edit state machine. Not safe for concurrent use; the
// controller owns it exclusively.
type Session struct {
	mode     Mode
	targetID string
	draft    Draft
}

// New returns an idle session.
func New() *Session {
	return &Session{mode: ModeIdle}
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	return State{Mode: s.mode, TargetID: s.targetID, Draft: s.draft}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// TargetID returns the record under edit, or "" outside ModeEditing.
func (s *Session) TargetID() string { return s.targetID }

// Draft returns the staged field values.
func (s *Session) Draft() Draft { return s.draft }

// Stage replaces the staged draft. Outside an edit, non-empty input moves
// the session to ModeComposing and empty input back to ModeIdle; during an
// edit the mode and target are unaffected.
func (s *Session) Stage(d Draft) {
	s.draft = d
	if s.mode == ModeEditing {
		return
	}
	if d.isEmpty() {
		s.mode = ModeIdle
	} else {
		s.mode = ModeComposing
	}
}

// BeginEdit targets an existing record and seeds the draft from its values
// at the moment of selection. The seed is a point-in-time copy, not a live
// binding; reconciliation against later snapshots is the caller's job.
func (s *Session) BeginEdit(rec core.Record) {
	s.mode = ModeEditing
	s.targetID = rec.ID
	s.draft = Draft{
		Description: rec.Description,
		Amount:      rec.Amount.String(),
		Timestamp:   rec.Timestamp,
	}
}

// Reset clears staged fields and returns the session to ModeIdle. Used on
// successful commits and explicit cancels.
func (s *Session) Reset() {
	s.mode = ModeIdle
	s.targetID = ""
	s.draft = Draft{}
}

// Reconcile applies the forced-transition rule against a fresh snapshot:
// if an edit targets a record the snapshot no longer contains, the session
// is reset so a stale commit can never resurrect a vanished record.
// Reports whether a reset happened.
func (s *Session) Reconcile(present func(id string) bool) bool {
	if s.mode != ModeEditing {
		return false
	}
	if present(s.targetID) {
		return false
	}
	s.Reset()
	return true
}

// ValidateDraft checks the staged values before a commit may be issued.
// The amount must parse as a positive decimal and the timestamp must not
// be in the future. On success it returns the parsed cents; on failure the
// session is left untouched and no store call may be made.
func (s *Session) ValidateDraft(now time.Time) (int64, error) {
	cents, err := core.ParseDecimalToCents(s.draft.Amount)
	if err != nil {
		return 0, err
	}
	if s.draft.Timestamp.After(now) {
		return 0, core.ErrFutureTimestamp
	}
	return cents, nil
}
