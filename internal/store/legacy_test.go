package store

import (
	"strings"
	"testing"
	"time"

	"labcash/internal/core"
)

const legacyDump = `{
  "lab_entries": [
    {"id": "e1", "date": "2025-03-02", "shift": "Morning", "amount": 1500.5, "timestamp": 1740900000000}
  ],
  "lab_expenses": "[{\"id\":\"x1\",\"date\":\"2025-03-03\",\"amount\":200,\"detail\":\"Reagents\",\"remarks\":\"\",\"timestamp\":1740990000000}]",
  "lab_advances": [
    {"id": "a1", "staffId": "s9", "staffName": "Former", "date": "2025-03-04", "amount": 300, "remarks": "fare", "timestamp": 1741000000000}
  ],
  "lab_staff_list": [
    {"id": "s1", "name": "Ali", "role": "Technician", "joinedDate": "2025-01-10T08:30:00.000Z"}
  ]
}`

func TestDecodeLegacy(t *testing.T) {
	snap, err := DecodeLegacy(strings.NewReader(legacyDump))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Revenue) != 1 || len(snap.Expenses) != 1 || len(snap.Advances) != 1 || len(snap.Staff) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	e := snap.Revenue[0]
	if e.Shift != core.Morning || !e.Amount.Equal(amt("1500.5")) || e.Date != core.NewDate(2025, 3, 2) {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.RecordedAt.Equal(time.UnixMilli(1740900000000)) {
		t.Fatalf("timestamp not converted: %v", e.RecordedAt)
	}
	if snap.Expenses[0].Description != "Reagents" {
		t.Fatalf("detail not mapped: %+v", snap.Expenses[0])
	}
	if snap.Advances[0].StaffName != "Former" {
		t.Fatalf("staff name lost: %+v", snap.Advances[0])
	}
	if snap.Staff[0].JoinedDate.Year() != 2025 {
		t.Fatalf("joined date not parsed: %v", snap.Staff[0].JoinedDate)
	}
}

func TestDecodeLegacyRejectsBadRecords(t *testing.T) {
	bad := `{"lab_entries": [{"id": "e1", "date": "2025-03-02", "shift": "Lunch", "amount": 1, "timestamp": 1}]}`
	if _, err := DecodeLegacy(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected error for unknown shift")
	}
	neg := `{"lab_expenses": [{"id": "x", "date": "2025-03-02", "amount": -5, "detail": "a", "timestamp": 1}]}`
	if _, err := DecodeLegacy(strings.NewReader(neg)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestIsLegacy(t *testing.T) {
	if !IsLegacy([]byte(legacyDump)) {
		t.Fatalf("legacy dump not detected")
	}
	native := `{"lab_entries":[{"id":"e1","date":"2025-03-02","shift":"Morning","amount":"10","recordedAt":"2025-03-02T10:00:00Z"}]}`
	if IsLegacy([]byte(native)) {
		t.Fatalf("native export detected as legacy")
	}
	if IsLegacy([]byte("not json")) {
		t.Fatalf("garbage detected as legacy")
	}
}
