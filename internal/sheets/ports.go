package sheets

import (
	"context"

	"labcash/internal/finance"
)

// Ports for outbound spreadsheet adapters.
type (
	// StatementWriter publishes a month's derived report. Writing the same
	// month again replaces what was there.
	StatementWriter interface {
		WriteMonthlyReport(ctx context.Context, r finance.Report) error
	}
)

// Tab kinds written per month.
const (
	TabStatement = "Statement"
	TabStaff     = "Staff"
	TabDaily     = "Daily"
)
