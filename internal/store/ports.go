package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"labcash/internal/core"
)

// Blob keys. The names match the original browser storage so an exported
// dump can be restored as is.
const (
	KeyRevenue  = "lab_entries"
	KeyExpenses = "lab_expenses"
	KeyAdvances = "lab_advances"
	KeyStaff    = "lab_staff_list"
)

// Collection names used in change events.
const (
	CollectionRevenue  = "revenue"
	CollectionExpenses = "expenses"
	CollectionAdvances = "advances"
	CollectionStaff    = "staff"
	CollectionAll      = "all"
)

const (
	OpCreate = "create"
	OpDelete = "delete"
	OpImport = "import"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrBlobNotFound is returned by BlobStore.Get for a key never written.
	ErrBlobNotFound = errors.New("blob not found")
	ErrMissingID    = errors.New("record has no id")
	ErrDuplicateID  = errors.New("duplicate record id")
)

// Ports for persistence and change fan-out.
type (
	// BlobStore keeps one opaque JSON document per key.
	BlobStore interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Put(ctx context.Context, key string, data []byte) error
		Close() error
	}

	// BatchWriter is implemented by blob stores that can write several
	// keys atomically. Either every write lands or none does.
	BatchWriter interface {
		PutBatch(ctx context.Context, writes []BlobWrite) error
	}

	BlobWrite struct {
		Key  string
		Data []byte
	}

	// Notifier is told about every successful write.
	Notifier interface {
		RecordChanged(ctx context.Context, ev RecordChanged) error
	}

	// RecordChanged describes one write. Month is empty for roster changes
	// and imports, which affect every month.
	RecordChanged struct {
		Collection string `json:"collection"`
		Op         string `json:"op"`
		ID         string `json:"id,omitempty"`
		Month      string `json:"month,omitempty"`
	}
)

// Snapshot is an immutable view of all four collections. Slices are never
// modified after a snapshot is handed out; callers must not modify them
// either.
type Snapshot struct {
	Revenue  []core.RevenueEntry `json:"lab_entries"`
	Expenses []core.Expense      `json:"lab_expenses"`
	Advances []core.Advance      `json:"lab_advances"`
	Staff    []core.StaffMember  `json:"lab_staff_list"`
}

func (s Snapshot) RevenueEntries() []core.RevenueEntry { return s.Revenue }
func (s Snapshot) ExpenseRecords() []core.Expense      { return s.Expenses }
func (s Snapshot) AdvanceRecords() []core.Advance      { return s.Advances }
func (s Snapshot) Roster() []core.StaffMember          { return s.Staff }

// StaffByID looks up a roster member.
func (s Snapshot) StaffByID(id string) (core.StaffMember, bool) {
	for _, m := range s.Staff {
		if m.ID == id {
			return m, true
		}
	}
	return core.StaffMember{}, false
}

// Validate checks every record, as done on create, and requires ids to be
// present and unique within each collection.
func (s Snapshot) Validate() error {
	ids := newIDSet()
	for _, e := range s.Revenue {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("revenue %s: %w", e.ID, err)
		}
		if err := ids.add(CollectionRevenue, e.ID); err != nil {
			return fmt.Errorf("revenue: %w", err)
		}
	}
	for _, e := range s.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if err := ids.add(CollectionExpenses, e.ID); err != nil {
			return fmt.Errorf("expense: %w", err)
		}
	}
	for _, a := range s.Advances {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("advance %s: %w", a.ID, err)
		}
		if err := ids.add(CollectionAdvances, a.ID); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	for _, m := range s.Staff {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("staff %s: %w", m.ID, err)
		}
		if err := ids.add(CollectionStaff, m.ID); err != nil {
			return fmt.Errorf("staff: %w", err)
		}
	}
	return nil
}

// idSet tracks ids seen per collection.
type idSet map[string]map[string]struct{}

func newIDSet() idSet { return idSet{} }

func (s idSet) add(collection, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	seen, ok := s[collection]
	if !ok {
		seen = map[string]struct{}{}
		s[collection] = seen
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("%w %q", ErrDuplicateID, id)
	}
	seen[id] = struct{}{}
	return nil
}

// Notifiers fans an event out to several notifiers. Every notifier is
// called; the first error is returned.
type Notifiers []Notifier

func (n Notifiers) RecordChanged(ctx context.Context, ev RecordChanged) error {
	var first error
	for _, x := range n {
		if x == nil {
			continue
		}
		if err := x.RecordChanged(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
