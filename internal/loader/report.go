// Package loader maps cleaned source rows into the scorecard schema: the
// directory loader with its carry-forward merge, the annual loader with its
// referential gate and full-replace upserts, and the batch runner that
// orders multi-file runs by resolved year.
package loader

import (
	"fmt"
	"strings"
)

// Tally counts per-entity outcomes for one load.
type Tally struct {
	Applied  int64 // rows inserted or updated
	Rejected int64 // rows discarded (missing identifier, unresolved foreign key, unreadable)
}

func (t *Tally) add(o Tally) {
	t.Applied += o.Applied
	t.Rejected += o.Rejected
}

// Report aggregates the tallies for one source file, or for a whole batch.
type Report struct {
	File string
	Year int // 0 for directory loads and batch totals

	Institutions Tally
	Agencies     Tally
	Students     Tally
	Financials   Tally
	Academics    Tally
}

// Add folds another report into this one.
func (r *Report) Add(o Report) {
	r.Institutions.add(o.Institutions)
	r.Agencies.add(o.Agencies)
	r.Students.add(o.Students)
	r.Financials.add(o.Financials)
	r.Academics.add(o.Academics)
}

// String renders the per-entity tallies for terminal output.
func (r Report) String() string {
	var b strings.Builder
	if r.Year > 0 {
		fmt.Fprintf(&b, "%s (year %d):\n", r.File, r.Year)
	} else {
		fmt.Fprintf(&b, "%s:\n", r.File)
	}
	writeTally(&b, "institutions", r.Institutions)
	writeTally(&b, "agencies", r.Agencies)
	writeTally(&b, "students", r.Students)
	writeTally(&b, "financials", r.Financials)
	writeTally(&b, "academics", r.Academics)
	return b.String()
}

func writeTally(b *strings.Builder, name string, t Tally) {
	if t.Applied == 0 && t.Rejected == 0 {
		return
	}
	fmt.Fprintf(b, "  %-12s applied=%d rejected=%d\n", name, t.Applied, t.Rejected)
}
