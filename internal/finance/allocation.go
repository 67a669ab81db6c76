package finance

import (
	"errors"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

const (
	GovtFractionText  = "0.85"
	StaffFractionText = "0.15"
)

var (
	GovtFraction  = decimal.RequireFromString(GovtFractionText)
	StaffFraction = decimal.RequireFromString(StaffFractionText)

	// DefaultSplit is the fixed 85/15 division of revenue.
	DefaultSplit = Split{Govt: GovtFraction, Staff: StaffFraction}

	ErrInvalidSplit = errors.New("split fractions must be non-negative and sum to 1")
)

// Split is the fraction of revenue owed to the government and the fraction
// kept for the staff pool.
type Split struct {
	Govt  decimal.Decimal
	Staff decimal.Decimal
}

func (s Split) Validate() error {
	if s.Govt.IsNegative() || s.Staff.IsNegative() {
		return ErrInvalidSplit
	}
	if !s.Govt.Add(s.Staff).Equal(decimal.NewFromInt(1)) {
		return ErrInvalidSplit
	}
	return nil
}

// Statement is the monthly aggregate. StaffCount is the divisor used for
// the base share and is never below 1; ActiveStaff is the real roster size.
type Statement struct {
	Month             core.Month      `json:"month"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	GovernmentShare   decimal.Decimal `json:"governmentShare"`
	GrossStaffPool    decimal.Decimal `json:"grossStaffPool"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	TotalAdvances     decimal.Decimal `json:"totalAdvances"`
	DistributablePool decimal.Decimal `json:"distributablePool"`
	BaseSharePerStaff decimal.Decimal `json:"baseSharePerStaff"`
	StaffCount        int             `json:"staffCount"`
	ActiveStaff       int             `json:"activeStaff"`
}

// HasDeficit reports whether expenses exceed the staff pool.
func (s Statement) HasDeficit() bool {
	return s.DistributablePool.IsNegative()
}

// ComputeStatement applies the default 85/15 split to p.
func ComputeStatement(p Period) Statement {
	return ComputeStatementWithSplit(p, DefaultSplit)
}

// ComputeStatementWithSplit derives the monthly statement for p. The base
// share is divided at decimal.DivisionPrecision (16) places.
//
// Advances are summed for reporting only. They are deducted from each
// person's ledger, not from the pool, so the distributable pool and the
// base share do not depend on them. A deficit pool is returned as is.
func ComputeStatementWithSplit(p Period, split Split) Statement {
	totalRevenue := decimal.Zero
	for _, e := range p.Revenue {
		totalRevenue = totalRevenue.Add(e.Amount)
	}
	totalExpenses := decimal.Zero
	for _, e := range p.Expenses {
		totalExpenses = totalExpenses.Add(e.Amount)
	}
	totalAdvances := decimal.Zero
	for _, a := range p.Advances {
		totalAdvances = totalAdvances.Add(a.Amount)
	}

	grossPool := totalRevenue.Mul(split.Staff)
	pool := grossPool.Sub(totalExpenses)

	active := len(p.Staff)
	count := active
	if count < 1 {
		count = 1
	}

	return Statement{
		Month:             p.Month,
		TotalRevenue:      totalRevenue,
		GovernmentShare:   totalRevenue.Mul(split.Govt),
		GrossStaffPool:    grossPool,
		TotalExpenses:     totalExpenses,
		TotalAdvances:     totalAdvances,
		DistributablePool: pool,
		BaseSharePerStaff: pool.Div(decimal.NewFromInt(int64(count))),
		StaffCount:        count,
		ActiveStaff:       active,
	}
}
