// Package aggregate derives the month-grouped view of a snapshot.
package aggregate

import (
	"sort"

	"tracker/internal/core"
)

// MonthGroup is one display section: all records of a calendar month with
// their running total. Derived state, never persisted.
type MonthGroup struct {
	Month   core.Month
	Entries []core.Record
	Total   core.Money
}

// Label returns the section header for the group's month.
func (g MonthGroup) Label() string {
	return g.Month.Label()
}

// GroupByMonth partitions records into month groups.
//
// Groups are ordered most recent month first; entries inside a group are
// ordered newest timestamp first, ties broken by ID ascending. The result
// depends only on the set of records, never on input order, so repeated
// aggregation of reordered snapshots is byte-identical. O(n log n).
func GroupByMonth(records []core.Record) []MonthGroup {
	byMonth := make(map[core.Month]*MonthGroup)
	for _, r := range records {
		key := core.MonthOf(r.Timestamp)
		g, ok := byMonth[key]
		if !ok {
			g = &MonthGroup{Month: key}
			byMonth[key] = g
		}
		g.Entries = append(g.Entries, r)
		g.Total = g.Total.Add(r.Amount)
	}

	groups := make([]MonthGroup, 0, len(byMonth))
	for _, g := range byMonth {
		sort.Slice(g.Entries, func(a, b int) bool {
			ta, tb := g.Entries[a].Timestamp, g.Entries[b].Timestamp
			if !ta.Equal(tb) {
				return ta.After(tb)
			}
			return g.Entries[a].ID < g.Entries[b].ID
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].Month.After(groups[b].Month)
	})
	return groups
}
