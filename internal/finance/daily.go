package finance

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

type (
	// DayTotal is the revenue of one day of the month.
	DayTotal struct {
		Day    int             `json:"day"`
		Label  string          `json:"label"`
		Amount decimal.Decimal `json:"amount"`
	}

	// DayGroup is a calendar day's entries in shift order with their total.
	DayGroup struct {
		Date    core.Date           `json:"date"`
		Entries []core.RevenueEntry `json:"entries"`
		Total   decimal.Decimal     `json:"total"`
	}

	ShiftTotal struct {
		Shift   core.Shift      `json:"shift"`
		Amount  decimal.Decimal `json:"amount"`
		Entries int             `json:"entries"`
	}
)

// DailyTotals sums revenue by day of month, ordered by ascending day number.
// Callers pass a single month's entries; days from different months with the
// same number are merged.
func DailyTotals(revenue []core.RevenueEntry) []DayTotal {
	byDay := make(map[int]decimal.Decimal)
	for _, e := range revenue {
		d := e.Date.Day()
		byDay[d] = byDay[d].Add(e.Amount)
	}

	out := make([]DayTotal, 0, len(byDay))
	for day, amount := range byDay {
		out = append(out, DayTotal{
			Day:    day,
			Label:  fmt.Sprintf("Day %d", day),
			Amount: amount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// DailyShifts groups revenue by date, newest day first. Entries inside a
// day are ordered Morning, Evening, Night and keep input order on ties.
func DailyShifts(revenue []core.RevenueEntry) []DayGroup {
	idx := make(map[core.Date]int)
	var groups []DayGroup
	for _, e := range revenue {
		i, ok := idx[e.Date]
		if !ok {
			i = len(groups)
			idx[e.Date] = i
			groups = append(groups, DayGroup{Date: e.Date, Total: decimal.Zero})
		}
		groups[i].Entries = append(groups[i].Entries, e)
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}

	for _, g := range groups {
		sort.SliceStable(g.Entries, func(a, b int) bool {
			return g.Entries[a].Shift.Rank() < g.Entries[b].Shift.Rank()
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date.Time)
	})
	return groups
}

// ShiftTotals sums revenue per shift, in rank order. Every valid shift is
// present, with zero when it has no entries.
func ShiftTotals(revenue []core.RevenueEntry) []ShiftTotal {
	out := make([]ShiftTotal, 0, 3)
	for _, sh := range core.Shifts() {
		out = append(out, ShiftTotal{Shift: sh, Amount: decimal.Zero})
	}
	for _, e := range revenue {
		r := e.Shift.Rank()
		if r > len(out) {
			continue
		}
		out[r-1].Amount = out[r-1].Amount.Add(e.Amount)
		out[r-1].Entries++
	}
	return out
}

// BestShift returns the shift with the highest revenue, or false when there
// is no revenue at all.
func BestShift(totals []ShiftTotal) (ShiftTotal, bool) {
	var best ShiftTotal
	found := false
	for _, t := range totals {
		if !t.Amount.IsPositive() {
			continue
		}
		if !found || t.Amount.GreaterThan(best.Amount) {
			best = t
			found = true
		}
	}
	return best, found
}
