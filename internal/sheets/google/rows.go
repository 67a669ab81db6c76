package google

import (
	"fmt"
	"strings"

	"labcash/internal/core"
	"labcash/internal/finance"
	"labcash/internal/sheets"
)

// tabName returns the sheet title for a month's tab, e.g. "2025-03 Daily".
func tabName(m core.Month, kind string) string {
	return fmt.Sprintf("%s %s", m.String(), kind)
}

// a1 quotes a sheet title for use in an A1 range.
func a1(title, cell string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(title, "'", "''"), cell)
}

func statementRows(r finance.Report) [][]any {
	st := r.Statement
	rows := [][]any{
		{"Field", "Value"},
		{"Month", st.Month.String()},
		{"Total revenue", st.TotalRevenue.String()},
		{"Government share (" + pct(finance.GovtFractionText) + ")", st.GovernmentShare.String()},
		{"Gross staff pool (" + pct(finance.StaffFractionText) + ")", st.GrossStaffPool.String()},
		{"Total expenses", st.TotalExpenses.String()},
		{"Distributable pool", st.DistributablePool.String()},
		{"Active staff", st.ActiveStaff},
		{"Staff count (divisor)", st.StaffCount},
		{"Base share per staff", st.BaseSharePerStaff.String()},
		{"Total advances (personal deductions)", st.TotalAdvances.String()},
	}
	if best, ok := finance.BestShift(r.ShiftTotals); ok {
		rows = append(rows, []any{"Best shift", best.Shift.String()})
	}
	if st.HasDeficit() {
		rows = append(rows, []any{"Note", "Expenses exceed the staff pool"})
	}
	return rows
}

func ledgerRows(r finance.Report) [][]any {
	rows := [][]any{{"Staff ID", "Name", "Base share", "Advances", "Net payable"}}
	for _, l := range r.Ledgers {
		rows = append(rows, []any{
			l.StaffID,
			l.StaffName,
			l.BaseShare.String(),
			l.PersonalAdvanceTotal.String(),
			l.NetPayable.String(),
		})
	}
	if len(r.OrphanAdvances) > 0 {
		rows = append(rows, []any{}, []any{"Advances of removed staff"}, []any{"Date", "Name", "Amount", "Remarks"})
		for _, a := range r.OrphanAdvances {
			rows = append(rows, []any{a.Date.String(), a.StaffName, a.Amount.String(), a.Remarks})
		}
	}
	return rows
}

func dailyRows(r finance.Report) [][]any {
	rows := [][]any{{"Day", "Label", "Total"}}
	for _, d := range r.DailyTotals {
		rows = append(rows, []any{d.Day, d.Label, d.Amount.String()})
	}
	rows = append(rows, []any{}, []any{"Date", "Shift", "Amount"})
	for _, g := range r.DayGroups {
		for _, e := range g.Entries {
			rows = append(rows, []any{g.Date.String(), e.Shift.String(), e.Amount.String()})
		}
		rows = append(rows, []any{g.Date.String(), "Total", g.Total.String()})
	}
	return rows
}

// pct renders "0.85" as "85%".
func pct(fraction string) string {
	s := strings.TrimPrefix(fraction, "0.")
	if len(s) == 1 {
		s += "0"
	}
	return strings.TrimPrefix(s, "0") + "%"
}

func tabsFor(r finance.Report) []tab {
	return []tab{
		{title: tabName(r.Month, sheets.TabStatement), rows: statementRows(r)},
		{title: tabName(r.Month, sheets.TabStaff), rows: ledgerRows(r)},
		{title: tabName(r.Month, sheets.TabDaily), rows: dailyRows(r)},
	}
}
