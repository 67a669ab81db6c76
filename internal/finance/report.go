package finance

import "labcash/internal/core"

// Report is everything derived for one month. It is built from a single
// snapshot, so all parts agree with each other.
type Report struct {
	Month          core.Month     `json:"month"`
	Statement      Statement      `json:"statement"`
	Ledgers        []Ledger       `json:"ledgers"`
	OrphanAdvances []core.Advance `json:"orphanAdvances"`
	DailyTotals    []DayTotal     `json:"dailyTotals"`
	DayGroups      []DayGroup     `json:"dayGroups"`
	ShiftTotals    []ShiftTotal   `json:"shiftTotals"`
}

// BuildReport runs the whole engine over a filtered period.
func BuildReport(p Period) Report {
	st := ComputeStatement(p)
	return Report{
		Month:          p.Month,
		Statement:      st,
		Ledgers:        BuildLedgers(st, p),
		OrphanAdvances: OrphanAdvances(p),
		DailyTotals:    DailyTotals(p.Revenue),
		DayGroups:      DailyShifts(p.Revenue),
		ShiftTotals:    ShiftTotals(p.Revenue),
	}
}
