package finance

import (
	"testing"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

var march = core.Month{Year: 2025, Month: 3}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rev(id string, date core.Date, sh core.Shift, amount string) core.RevenueEntry {
	return core.RevenueEntry{ID: id, Date: date, Shift: sh, Amount: d(amount)}
}

func staff(ids ...string) []core.StaffMember {
	out := make([]core.StaffMember, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.StaffMember{ID: id, Name: "name-" + id})
	}
	return out
}

type fakeCollections struct {
	revenue  []core.RevenueEntry
	expenses []core.Expense
	advances []core.Advance
	staff    []core.StaffMember
}

func (f fakeCollections) RevenueEntries() []core.RevenueEntry { return f.revenue }
func (f fakeCollections) ExpenseRecords() []core.Expense      { return f.expenses }
func (f fakeCollections) AdvanceRecords() []core.Advance      { return f.advances }
func (f fakeCollections) Roster() []core.StaffMember          { return f.staff }

// basePeriod is 10,000 revenue, 500 expenses and four staff in March 2025.
func basePeriod() Period {
	return Period{
		Month: march,
		Revenue: []core.RevenueEntry{
			rev("r1", core.NewDate(2025, 3, 1), core.Morning, "6000"),
			rev("r2", core.NewDate(2025, 3, 2), core.Night, "4000"),
		},
		Expenses: []core.Expense{
			{ID: "e1", Date: core.NewDate(2025, 3, 4), Amount: d("500"), Description: "Reagents"},
		},
		Staff: staff("a", "b", "c", "d"),
	}
}

func TestInMonth(t *testing.T) {
	in := []core.RevenueEntry{
		rev("1", core.NewDate(2025, 3, 31), core.Night, "10"),
		rev("2", core.NewDate(2025, 4, 1), core.Morning, "10"),
		rev("3", core.NewDate(2024, 3, 15), core.Morning, "10"),
		rev("4", core.NewDate(2025, 3, 1), core.Morning, "10"),
		rev("5", core.Date{}, core.Morning, "10"),
	}
	got := InMonth(march, in)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "4" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(in) != 5 || in[1].ID != "2" {
		t.Fatalf("input was modified")
	}
}

func TestFilterPeriod(t *testing.T) {
	c := fakeCollections{
		revenue: []core.RevenueEntry{
			rev("in", core.NewDate(2025, 3, 5), core.Morning, "10"),
			rev("out", core.NewDate(2025, 2, 28), core.Morning, "10"),
		},
		expenses: []core.Expense{
			{ID: "out", Date: core.NewDate(2025, 4, 1), Amount: d("1"), Description: "x"},
		},
		advances: []core.Advance{
			{ID: "in", StaffID: "a", Date: core.NewDate(2025, 3, 9), Amount: d("5")},
		},
		staff: staff("a", "gone-next-month"),
	}
	p := FilterPeriod(march, c)
	if len(p.Revenue) != 1 || p.Revenue[0].ID != "in" {
		t.Fatalf("revenue: %+v", p.Revenue)
	}
	if len(p.Expenses) != 0 {
		t.Fatalf("expenses: %+v", p.Expenses)
	}
	if len(p.Advances) != 1 {
		t.Fatalf("advances: %+v", p.Advances)
	}
	if len(p.Staff) != 2 {
		t.Fatalf("roster must not be filtered: %+v", p.Staff)
	}
	p.Staff[0].Name = "changed"
	if c.staff[0].Name != "name-a" {
		t.Fatalf("roster shares memory with input")
	}
}

func TestComputeStatementScenarios(t *testing.T) {
	tests := []struct {
		name     string
		period   func() Period
		gov      string
		gross    string
		pool     string
		base     string
		count    int
		active   int
		advances string
		deficit  bool
	}{
		{
			name:   "four staff",
			period: basePeriod,
			gov:    "8500", gross: "1500", pool: "1000", base: "250",
			count: 4, active: 4, advances: "0",
		},
		{
			name: "advance does not touch pool",
			period: func() Period {
				p := basePeriod()
				p.Advances = []core.Advance{{ID: "x", StaffID: "a", Date: core.NewDate(2025, 3, 3), Amount: d("300")}}
				return p
			},
			gov: "8500", gross: "1500", pool: "1000", base: "250",
			count: 4, active: 4, advances: "300",
		},
		{
			name: "zero staff",
			period: func() Period {
				p := basePeriod()
				p.Staff = nil
				return p
			},
			gov: "8500", gross: "1500", pool: "1000", base: "1000",
			count: 1, active: 0, advances: "0",
		},
		{
			name: "deficit",
			period: func() Period {
				p := basePeriod()
				p.Expenses = append(p.Expenses, core.Expense{ID: "e2", Date: core.NewDate(2025, 3, 5), Amount: d("1700"), Description: "Rent"})
				return p
			},
			gov: "8500", gross: "1500", pool: "-700", base: "-175",
			count: 4, active: 4, advances: "0", deficit: true,
		},
		{
			name: "empty month",
			period: func() Period {
				return Period{Month: march}
			},
			gov: "0", gross: "0", pool: "0", base: "0",
			count: 1, active: 0, advances: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ComputeStatement(tt.period())
			checks := []struct {
				field string
				got   decimal.Decimal
				want  string
			}{
				{"governmentShare", st.GovernmentShare, tt.gov},
				{"grossStaffPool", st.GrossStaffPool, tt.gross},
				{"distributablePool", st.DistributablePool, tt.pool},
				{"baseSharePerStaff", st.BaseSharePerStaff, tt.base},
				{"totalAdvances", st.TotalAdvances, tt.advances},
			}
			for _, c := range checks {
				if !c.got.Equal(d(c.want)) {
					t.Errorf("%s = %s, want %s", c.field, c.got, c.want)
				}
			}
			if st.StaffCount != tt.count || st.ActiveStaff != tt.active {
				t.Errorf("staff count = %d/%d, want %d/%d", st.StaffCount, st.ActiveStaff, tt.count, tt.active)
			}
			if st.HasDeficit() != tt.deficit {
				t.Errorf("HasDeficit = %v", st.HasDeficit())
			}
		})
	}
}

func TestStatementProperties(t *testing.T) {
	amounts := []string{"0.01", "1", "333.33", "10000", "12345.67", "999999.99"}
	for _, a := range amounts {
		for n := 0; n <= 7; n++ {
			p := Period{
				Month:    march,
				Revenue:  []core.RevenueEntry{rev("r", core.NewDate(2025, 3, 1), core.Morning, a)},
				Expenses: []core.Expense{{ID: "e", Date: core.NewDate(2025, 3, 1), Amount: d("0.5"), Description: "x"}},
				Staff:    staff(make([]string, n)...),
			}
			st := ComputeStatement(p)

			if !st.GovernmentShare.Add(st.GrossStaffPool).Equal(st.TotalRevenue) {
				t.Fatalf("%s: shares do not add up to revenue", a)
			}
			if !st.DistributablePool.Equal(st.GrossStaffPool.Sub(st.TotalExpenses)) {
				t.Fatalf("%s: pool != gross - expenses", a)
			}
			divisor := n
			if divisor < 1 {
				divisor = 1
			}
			if !st.BaseSharePerStaff.Equal(st.DistributablePool.Div(decimal.NewFromInt(int64(divisor)))) {
				t.Fatalf("%s/%d: base share mismatch", a, n)
			}
			if again := ComputeStatement(p); !statementsEqual(again, st) {
				t.Fatalf("%s/%d: not idempotent", a, n)
			}
		}
	}
}

func statementsEqual(a, b Statement) bool {
	return a.Month == b.Month &&
		a.TotalRevenue.Equal(b.TotalRevenue) &&
		a.GovernmentShare.Equal(b.GovernmentShare) &&
		a.GrossStaffPool.Equal(b.GrossStaffPool) &&
		a.TotalExpenses.Equal(b.TotalExpenses) &&
		a.TotalAdvances.Equal(b.TotalAdvances) &&
		a.DistributablePool.Equal(b.DistributablePool) &&
		a.BaseSharePerStaff.Equal(b.BaseSharePerStaff) &&
		a.StaffCount == b.StaffCount &&
		a.ActiveStaff == b.ActiveStaff
}

func TestSplitValidate(t *testing.T) {
	if err := DefaultSplit.Validate(); err != nil {
		t.Fatalf("default split invalid: %v", err)
	}
	if !GovtFraction.Equal(d("0.85")) || !StaffFraction.Equal(d("0.15")) {
		t.Fatalf("unexpected fractions %s/%s", GovtFraction, StaffFraction)
	}
	bad := []Split{
		{Govt: d("0.8"), Staff: d("0.15")},
		{Govt: d("1.1"), Staff: d("-0.1")},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Fatalf("expected error for %+v", s)
		}
	}

	st := ComputeStatementWithSplit(basePeriod(), Split{Govt: d("0.9"), Staff: d("0.1")})
	if !st.GrossStaffPool.Equal(d("1000")) || !st.BaseSharePerStaff.Equal(d("125")) {
		t.Fatalf("custom split: gross=%s base=%s", st.GrossStaffPool, st.BaseSharePerStaff)
	}
}
