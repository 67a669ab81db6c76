// Package finance holds the pure allocation engine: month filtering, the
// government/staff split, per-person ledgers, daily aggregation and the
// cash counter. Nothing here performs I/O or keeps state between calls.
package finance

import (
	"labcash/internal/core"
)

// Dated is any record that belongs to a calendar day.
type Dated interface {
	RecordDate() core.Date
}

// Period is the month-scoped view of the record collections. Staff is the
// current roster and is never filtered by date.
type Period struct {
	Month    core.Month
	Revenue  []core.RevenueEntry
	Expenses []core.Expense
	Advances []core.Advance
	Staff    []core.StaffMember
}

// Collections is the input of FilterPeriod. store.Snapshot satisfies it.
type Collections interface {
	RevenueEntries() []core.RevenueEntry
	ExpenseRecords() []core.Expense
	AdvanceRecords() []core.Advance
	Roster() []core.StaffMember
}

// InMonth returns the records dated inside m, in their original order.
// The input slice is not modified.
func InMonth[T Dated](m core.Month, records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if m.Contains(r.RecordDate()) {
			out = append(out, r)
		}
	}
	return out
}

// FilterPeriod narrows the dated collections to m.
func FilterPeriod(m core.Month, c Collections) Period {
	staff := c.Roster()
	roster := make([]core.StaffMember, len(staff))
	copy(roster, staff)

	return Period{
		Month:    m,
		Revenue:  InMonth(m, c.RevenueEntries()),
		Expenses: InMonth(m, c.ExpenseRecords()),
		Advances: InMonth(m, c.AdvanceRecords()),
		Staff:    roster,
	}
}
