package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"

	creditLabel = "Monthly distribution"
	debitLabel  = "Advance"
)

type (
	EntryKind string

	// LedgerEntry is one line of a personal ledger. Debit amounts are negative.
	LedgerEntry struct {
		Kind      EntryKind       `json:"kind"`
		Date      core.Date       `json:"date"`
		Label     string          `json:"label"`
		Amount    decimal.Decimal `json:"amount"`
		Remarks   string          `json:"remarks,omitempty"`
		AdvanceID string          `json:"advanceId,omitempty"`
	}

	Ledger struct {
		StaffID              string          `json:"staffId"`
		StaffName            string          `json:"staffName"`
		Month                core.Month      `json:"month"`
		BaseShare            decimal.Decimal `json:"baseShare"`
		PersonalAdvanceTotal decimal.Decimal `json:"personalAdvanceTotal"`
		NetPayable           decimal.Decimal `json:"netPayable"`
		Entries              []LedgerEntry   `json:"entries"`
	}
)

// BuildLedger nets member's advances for the period against the base share.
// periodAdvances may contain other people's advances; only those whose
// StaffID matches member.ID are used.
func BuildLedger(st Statement, member core.StaffMember, periodAdvances []core.Advance) Ledger {
	var own []core.Advance
	total := decimal.Zero
	for _, a := range periodAdvances {
		if a.StaffID != member.ID {
			continue
		}
		own = append(own, a)
		total = total.Add(a.Amount)
	}

	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Date.After(own[j].Date.Time)
	})

	entries := make([]LedgerEntry, 0, len(own)+1)
	entries = append(entries, LedgerEntry{
		Kind:   EntryCredit,
		Date:   st.Month.LastDay(),
		Label:  creditLabel,
		Amount: st.BaseSharePerStaff,
	})
	for _, a := range own {
		entries = append(entries, LedgerEntry{
			Kind:      EntryDebit,
			Date:      a.Date,
			Label:     debitLabel,
			Amount:    a.Amount.Neg(),
			Remarks:   a.Remarks,
			AdvanceID: a.ID,
		})
	}

	return Ledger{
		StaffID:              member.ID,
		StaffName:            member.Name,
		Month:                st.Month,
		BaseShare:            st.BaseSharePerStaff,
		PersonalAdvanceTotal: total,
		NetPayable:           st.BaseSharePerStaff.Sub(total),
		Entries:              entries,
	}
}

// BuildLedgers returns one ledger per roster member, in roster order.
func BuildLedgers(st Statement, p Period) []Ledger {
	out := make([]Ledger, 0, len(p.Staff))
	for _, m := range p.Staff {
		out = append(out, BuildLedger(st, m, p.Advances))
	}
	return out
}

// OrphanAdvances returns the period's advances whose staff member is no
// longer on the roster.
func OrphanAdvances(p Period) []core.Advance {
	onRoster := make(map[string]struct{}, len(p.Staff))
	for _, m := range p.Staff {
		onRoster[m.ID] = struct{}{}
	}
	var out []core.Advance
	for _, a := range p.Advances {
		if _, ok := onRoster[a.StaffID]; !ok {
			out = append(out, a)
		}
	}
	return out
}
