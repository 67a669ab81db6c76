package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"labcash/internal/core"
)

type (
	legacyEntry struct {
		ID        string          `json:"id"`
		Date      string          `json:"date"`
		Shift     string          `json:"shift"`
		Amount    decimal.Decimal `json:"amount"`
		Timestamp int64           `json:"timestamp"`
	}

	legacyExpense struct {
		ID        string          `json:"id"`
		Date      string          `json:"date"`
		Amount    decimal.Decimal `json:"amount"`
		Detail    string          `json:"detail"`
		Remarks   string          `json:"remarks"`
		Timestamp int64           `json:"timestamp"`
	}

	legacyAdvance struct {
		ID        string          `json:"id"`
		StaffID   string          `json:"staffId"`
		StaffName string          `json:"staffName"`
		Date      string          `json:"date"`
		Amount    decimal.Decimal `json:"amount"`
		Remarks   string          `json:"remarks"`
		Timestamp int64           `json:"timestamp"`
	}

	legacyStaff struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Role       string `json:"role"`
		JoinedDate string `json:"joinedDate"`
	}
)

// IsLegacy reports whether raw looks like a browser storage dump rather
// than a native export. Native expenses carry "description", legacy ones
// carry "detail" and every legacy record has a numeric "timestamp".
func IsLegacy(raw []byte) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for _, key := range []string{KeyRevenue, KeyExpenses, KeyAdvances} {
		v, ok := doc[key]
		if !ok {
			continue
		}
		arr, err := unwrapStored(v)
		if err != nil {
			return false
		}
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(arr, &items); err != nil || len(items) == 0 {
			continue
		}
		_, hasTimestamp := items[0]["timestamp"]
		return hasTimestamp
	}
	return false
}

// DecodeLegacy reads a dump of the original browser storage. Each key may
// hold the array itself or the JSON string that localStorage kept.
func DecodeLegacy(r io.Reader) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode legacy dump: %w", err)
	}

	var (
		entries  []legacyEntry
		expenses []legacyExpense
		advances []legacyAdvance
		staff    []legacyStaff
	)
	if err := decodeStored(raw, KeyRevenue, &entries); err != nil {
		return Snapshot{}, err
	}
	if err := decodeStored(raw, KeyExpenses, &expenses); err != nil {
		return Snapshot{}, err
	}
	if err := decodeStored(raw, KeyAdvances, &advances); err != nil {
		return Snapshot{}, err
	}
	if err := decodeStored(raw, KeyStaff, &staff); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	for _, e := range entries {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return Snapshot{}, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		shift, err := core.ParseShift(e.Shift)
		if err != nil {
			return Snapshot{}, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		snap.Revenue = append(snap.Revenue, core.RevenueEntry{
			ID:         e.ID,
			Date:       date,
			Shift:      shift,
			Amount:     e.Amount,
			RecordedAt: fromMillis(e.Timestamp),
		})
	}
	for _, e := range expenses {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return Snapshot{}, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		snap.Expenses = append(snap.Expenses, core.Expense{
			ID:          e.ID,
			Date:        date,
			Amount:      e.Amount,
			Description: strings.TrimSpace(e.Detail),
			Remarks:     strings.TrimSpace(e.Remarks),
			RecordedAt:  fromMillis(e.Timestamp),
		})
	}
	for _, a := range advances {
		date, err := core.ParseDate(a.Date)
		if err != nil {
			return Snapshot{}, fmt.Errorf("advance %s: %w", a.ID, err)
		}
		snap.Advances = append(snap.Advances, core.Advance{
			ID:         a.ID,
			StaffID:    a.StaffID,
			StaffName:  a.StaffName,
			Date:       date,
			Amount:     a.Amount,
			Remarks:    strings.TrimSpace(a.Remarks),
			RecordedAt: fromMillis(a.Timestamp),
		})
	}
	for _, m := range staff {
		joined, _ := time.Parse(time.RFC3339, m.JoinedDate)
		snap.Staff = append(snap.Staff, core.StaffMember{
			ID:         m.ID,
			Name:       strings.TrimSpace(m.Name),
			Role:       strings.TrimSpace(m.Role),
			JoinedDate: joined.UTC(),
		})
	}

	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("legacy dump: %w", err)
	}
	return snap, nil
}

func decodeStored(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	arr, err := unwrapStored(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(arr) == 0 {
		return nil
	}
	if err := json.Unmarshal(arr, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// unwrapStored turns a JSON string holding JSON into the inner document.
func unwrapStored(v json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(v))
	if trimmed == "null" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, `"`) {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, err
	}
	return json.RawMessage(s), nil
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
