package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Morning Shift = "Morning"
	Evening Shift = "Evening"
	Night   Shift = "Night"
)

type (
	// Shift is one of the three fixed daily work periods.
	Shift string

	RevenueEntry struct {
		ID         string          `json:"id"`
		Date       Date            `json:"date"`
		Shift      Shift           `json:"shift"`
		Amount     decimal.Decimal `json:"amount"`
		RecordedAt time.Time       `json:"recordedAt"`
	}

	Expense struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Remarks     string          `json:"remarks,omitempty"`
		RecordedAt  time.Time       `json:"recordedAt"`
	}

	// Advance is a personal cash draw. StaffName is copied from the roster
	// when the advance is recorded and is never refreshed afterwards.
	Advance struct {
		ID         string          `json:"id"`
		StaffID    string          `json:"staffId"`
		StaffName  string          `json:"staffName"`
		Date       Date            `json:"date"`
		Amount     decimal.Decimal `json:"amount"`
		Remarks    string          `json:"remarks,omitempty"`
		RecordedAt time.Time       `json:"recordedAt"`
	}

	StaffMember struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		Role       string    `json:"role,omitempty"`
		JoinedDate time.Time `json:"joinedDate"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidShift       = errors.New("invalid shift")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty staff name")
	ErrNameTooLong        = errors.New("staff name too long (max 100 characters)")
	ErrMissingStaff       = errors.New("advance requires a staff member")
	ErrUnknownStaff       = errors.New("unknown staff member")
)

// Rank orders shifts for display: Morning=1, Evening=2, Night=3.
// Unknown shifts sort last.
func (s Shift) Rank() int {
	switch s {
	case Morning:
		return 1
	case Evening:
		return 2
	case Night:
		return 3
	default:
		return 4
	}
}

func (s Shift) Valid() bool {
	return s.Rank() < 4
}

func (s Shift) String() string {
	return string(s)
}

// Shifts lists the valid shifts in rank order.
func Shifts() []Shift {
	return []Shift{Morning, Evening, Night}
}

// ParseShift accepts a shift name in any letter case.
func ParseShift(s string) (Shift, error) {
	s = strings.TrimSpace(s)
	for _, sh := range Shifts() {
		if strings.EqualFold(s, string(sh)) {
			return sh, nil
		}
	}
	return "", ErrInvalidShift
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (e RevenueEntry) RecordDate() Date { return e.Date }
func (e Expense) RecordDate() Date      { return e.Date }
func (a Advance) RecordDate() Date      { return a.Date }

func (e RevenueEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Shift.Valid() {
		return ErrInvalidShift
	}
	return ValidateAmount(e.Amount)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (a Advance) Validate() error {
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(a.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(a.StaffID) == "" {
		return ErrMissingStaff
	}
	return nil
}

func (m StaffMember) Validate() error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}
