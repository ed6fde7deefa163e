package core

import (
	"errors"
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	valid := Record{
		ID:          "r1",
		Description: "Groceries",
		Amount:      Money{Cents: 1250},
		Author:      "Alice",
		Timestamp:   now.Add(-24 * time.Hour),
	}

	cases := []struct {
		name    string
		mutate  func(r Record) Record
		wantErr error
	}{
		{"valid", func(r Record) Record { return r }, nil},
		{"missing id", func(r Record) Record { r.ID = " "; return r }, ErrMissingID},
		{"zero amount", func(r Record) Record { r.Amount = Money{}; return r }, ErrInvalidAmount},
		{"negative amount", func(r Record) Record { r.Amount = Money{Cents: -5}; return r }, ErrInvalidAmount},
		{"zero timestamp", func(r Record) Record { r.Timestamp = time.Time{}; return r }, ErrMissingTimestamp},
		{"future timestamp", func(r Record) Record { r.Timestamp = now.Add(time.Hour); return r }, ErrFutureTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mutate(valid).Validate(now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNormalizeDescription(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Lunch", "Lunch"},
		{"  Lunch  ", "Lunch"},
		{"", DefaultDescription},
		{"   ", DefaultDescription},
	}
	for _, tc := range cases {
		if got := NormalizeDescription(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
