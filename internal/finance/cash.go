package finance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Denominations are the PKR notes accepted by the counter, largest first.
var Denominations = []int{5000, 1000, 500, 100, 50, 20, 10}

var (
	ErrInvalidCount        = errors.New("note count must be a non-negative whole number")
	ErrUnknownDenomination = errors.New("unknown denomination")
)

type (
	CashLine struct {
		Denomination int             `json:"denomination"`
		Count        int64           `json:"count"`
		Total        decimal.Decimal `json:"total"`
	}

	// CashCount lists every denomination in order, including zero counts.
	CashCount struct {
		Lines []CashLine      `json:"lines"`
		Total decimal.Decimal `json:"total"`
	}
)

func isDenomination(d int) bool {
	for _, v := range Denominations {
		if v == d {
			return true
		}
	}
	return false
}

// CountCash multiplies each note count by its face value and totals them.
// Missing denominations count as zero.
func CountCash(counts map[int]int64) (CashCount, error) {
	for d, n := range counts {
		if !isDenomination(d) {
			return CashCount{}, fmt.Errorf("%w: %d", ErrUnknownDenomination, d)
		}
		if n < 0 {
			return CashCount{}, fmt.Errorf("%w: %d x %d", ErrInvalidCount, d, n)
		}
	}

	res := CashCount{Lines: make([]CashLine, 0, len(Denominations)), Total: decimal.Zero}
	for _, d := range Denominations {
		n := counts[d]
		line := CashLine{
			Denomination: d,
			Count:        n,
			Total:        decimal.NewFromInt(int64(d)).Mul(decimal.NewFromInt(n)),
		}
		res.Lines = append(res.Lines, line)
		res.Total = res.Total.Add(line.Total)
	}
	return res, nil
}

// ParseCounts reads "5000=3,1000=2". Fields may also be separated by
// whitespace. A blank count ("500=") is zero.
func ParseCounts(s string) (map[int]int64, error) {
	counts := make(map[int]int64)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, f := range fields {
		denom, count, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCount, f)
		}
		d, err := strconv.Atoi(strings.TrimSpace(denom))
		if err != nil || !isDenomination(d) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDenomination, denom)
		}
		count = strings.TrimSpace(count)
		if count == "" {
			continue
		}
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCount, count)
		}
		counts[d] += n
	}
	return counts, nil
}
