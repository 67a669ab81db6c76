package summary

import (
	"fmt"
	"strings"

	"labcash/internal/core"
	"labcash/internal/finance"
)

// BuildPrompt describes the month's figures for the model. Amounts are
// given at full precision; the model is asked to round for display.
func BuildPrompt(month core.Month, st finance.Statement, revenue []core.RevenueEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a financial analyst for a medical laboratory.\n")
	fmt.Fprintf(&b, "Analyze the revenue data for %s. All monetary values are in PKR (Pakistani Rupee).\n\n", month)

	b.WriteString("Financial context:\n")
	fmt.Fprintf(&b, "- Total revenue: %s PKR\n", st.TotalRevenue)
	fmt.Fprintf(&b, "- Government share (%s): %s PKR\n", finance.GovtFractionText, st.GovernmentShare)
	fmt.Fprintf(&b, "- Gross staff pool (%s): %s PKR\n", finance.StaffFractionText, st.GrossStaffPool)
	fmt.Fprintf(&b, "- Shared expenses (deducted from pool): %s PKR\n", st.TotalExpenses)
	fmt.Fprintf(&b, "- Net distributable pool: %s PKR\n", st.DistributablePool)
	fmt.Fprintf(&b, "- Number of staff members: %d\n", st.ActiveStaff)
	fmt.Fprintf(&b, "- Base share per staff member: %s PKR (before personal advances)\n", st.BaseSharePerStaff)
	fmt.Fprintf(&b, "- Personal advances taken this month: %s PKR\n", st.TotalAdvances)
	if st.HasDeficit() {
		b.WriteString("- Note: expenses exceeded the staff pool this month.\n")
	}
	if best, ok := finance.BestShift(finance.ShiftTotals(revenue)); ok {
		fmt.Fprintf(&b, "- Highest revenue shift: %s (%s PKR)\n", best.Shift, best.Amount)
	}

	b.WriteString("\nRaw data (date - shift - amount):\n")
	if len(revenue) == 0 {
		b.WriteString("(no entries)\n")
	}
	for _, e := range revenue {
		fmt.Fprintf(&b, "%s (%s): %s PKR\n", e.Date, e.Shift, e.Amount)
	}

	b.WriteString(`
Provide a concise, professional summary that includes:
1. A brief overview of the financial performance.
2. The highest performing shift (Morning, Evening, or Night).
3. Notable trends or anomalies in the dates.
4. A motivating closing remark for the staff.

Keep the tone professional and encouraging. Round amounts to whole rupees. Format with Markdown.
`)
	return b.String()
}
