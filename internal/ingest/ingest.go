// Package ingest normalizes raw store snapshots into domain records.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/store"
)

// Ingest is a stateless normalizer for incoming snapshots.
type Ingest struct {
	logger *applog.Logger
	now    func() time.Time
}

// New returns an Ingest that logs data-quality conditions through logger.
// A nil logger disables diagnostics.
func New(logger *applog.Logger) *Ingest {
	return &Ingest{logger: logger, now: time.Now}
}

// WithClock overrides the wall clock used for timestamp defaults. Test hook.
func (i *Ingest) WithClock(now func() time.Time) *Ingest {
	i.now = now
	return i
}

// Normalize turns a raw snapshot into domain records, preserving input
// order. It never fails on a single malformed record:
//
//   - blank description -> core.DefaultDescription
//   - missing/unparseable timestamp -> ingest wall-clock time
//   - malformed amount -> 0 cents, so totals stay a strict lower bound
//     instead of silently losing entries
//
// Coercions are data-quality conditions, logged but not surfaced as errors.
func (i *Ingest) Normalize(raw []store.RawRecord) []core.Record {
	now := i.now()
	records := make([]core.Record, 0, len(raw))
	for _, rr := range raw {
		rec := core.Record{
			ID:          rr.ID,
			Description: core.NormalizeDescription(rr.Description),
			Author:      rr.Author,
		}

		cents, err := core.ParseDecimalToCents(rr.Amount)
		if err != nil {
			i.warn("coerced malformed amount to zero",
				applog.FieldRecordID, rr.ID,
				applog.FieldRawAmount, rr.Amount)
			cents = 0
		}
		rec.Amount = core.Money{Cents: cents}

		ts, err := time.Parse(time.RFC3339, rr.Timestamp)
		if err != nil {
			if rr.Timestamp != "" {
				i.warn("defaulted unparseable timestamp",
					applog.FieldRecordID, rr.ID,
					applog.FieldRawTimestamp, rr.Timestamp)
			}
			ts = now
		}
		rec.Timestamp = ts

		records = append(records, rec)
	}
	return records
}

func (i *Ingest) warn(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}

// Fingerprint returns an order-independent identity for a normalized
// snapshot. Two snapshots that differ only by record order share a
// fingerprint, which is what makes duplicate delivery detectable.
func Fingerprint(records []core.Record) string {
	lines := make([]string, len(records))
	for n, r := range records {
		lines[n] = fmt.Sprintf("%s|%s|%d|%s|%s",
			r.ID, r.Description, r.Amount.Cents, r.Author,
			strconv.FormatInt(r.Timestamp.UnixNano(), 10))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
