// Package store keeps the four record collections and hands out immutable
// snapshots of them. Each collection is persisted as one JSON blob.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"labcash/internal/core"
	applog "labcash/internal/log"
)

// Store serializes writes and persists every collection it changes.
type Store struct {
	mu       sync.Mutex
	blobs    BlobStore
	notifier Notifier
	current  Snapshot
	loaded   bool

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides time.Now for recordedAt and joinedDate.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs: blobs,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state, loading it from the blob store on
// first use.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Snapshot{}, err
	}
	return s.current, nil
}

func (s *Store) AddRevenue(ctx context.Context, date core.Date, shift core.Shift, amount decimal.Decimal) (core.RevenueEntry, Snapshot, error) {
	e := core.RevenueEntry{
		Date:   date,
		Shift:  shift,
		Amount: amount,
	}
	if err := e.Validate(); err != nil {
		return core.RevenueEntry{}, Snapshot{}, fmt.Errorf("add revenue: %w", err)
	}

	month := e.Date.Period().String()
	next, err := s.write(ctx, func(cur Snapshot) (Snapshot, error) {
		e.ID = s.newID()
		e.RecordedAt = s.now().UTC()
		cur.Revenue = appendCopy(cur.Revenue, e)
		return cur, nil
	}, KeyRevenue)
	if err != nil {
		return core.RevenueEntry{}, Snapshot{}, err
	}

	logChange(ctx, OpCreate, CollectionRevenue, e.ID, month, e.Amount.String())
	s.notify(ctx, RecordChanged{Collection: CollectionRevenue, Op: OpCreate, ID: e.ID, Month: month})
	return e, next, nil
}

func (s *Store) DeleteRevenue(ctx context.Context, id string) (Snapshot, error) {
	return s.deleteRecord(ctx, CollectionRevenue, id, func(cur Snapshot) (Snapshot, string, bool) {
		kept, removed, ok := without(cur.Revenue, id, func(e core.RevenueEntry) string { return e.ID })
		cur.Revenue = kept
		return cur, removed.Date.Period().String(), ok
	})
}

func (s *Store) AddExpense(ctx context.Context, date core.Date, amount decimal.Decimal, description, remarks string) (core.Expense, Snapshot, error) {
	e := core.Expense{
		Date:        date,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Remarks:     strings.TrimSpace(remarks),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, Snapshot{}, fmt.Errorf("add expense: %w", err)
	}

	month := e.Date.Period().String()
	next, err := s.write(ctx, func(cur Snapshot) (Snapshot, error) {
		e.ID = s.newID()
		e.RecordedAt = s.now().UTC()
		cur.Expenses = appendCopy(cur.Expenses, e)
		return cur, nil
	}, KeyExpenses)
	if err != nil {
		return core.Expense{}, Snapshot{}, err
	}

	logChange(ctx, OpCreate, CollectionExpenses, e.ID, month, e.Amount.String())
	s.notify(ctx, RecordChanged{Collection: CollectionExpenses, Op: OpCreate, ID: e.ID, Month: month})
	return e, next, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (Snapshot, error) {
	return s.deleteRecord(ctx, CollectionExpenses, id, func(cur Snapshot) (Snapshot, string, bool) {
		kept, removed, ok := without(cur.Expenses, id, func(e core.Expense) string { return e.ID })
		cur.Expenses = kept
		return cur, removed.Date.Period().String(), ok
	})
}

// AddAdvance records a cash draw for a staff member currently on the
// roster. The member's name is copied onto the advance.
func (s *Store) AddAdvance(ctx context.Context, date core.Date, amount decimal.Decimal, staffID, remarks string) (core.Advance, Snapshot, error) {
	a := core.Advance{
		StaffID: strings.TrimSpace(staffID),
		Date:    date,
		Amount:  amount,
		Remarks: strings.TrimSpace(remarks),
	}
	if err := a.Validate(); err != nil {
		return core.Advance{}, Snapshot{}, fmt.Errorf("add advance: %w", err)
	}

	month := a.Date.Period().String()
	next, err := s.write(ctx, func(cur Snapshot) (Snapshot, error) {
		member, ok := cur.StaffByID(a.StaffID)
		if !ok {
			return Snapshot{}, fmt.Errorf("add advance for %q: %w", a.StaffID, core.ErrUnknownStaff)
		}
		a.StaffName = member.Name
		a.ID = s.newID()
		a.RecordedAt = s.now().UTC()
		cur.Advances = appendCopy(cur.Advances, a)
		return cur, nil
	}, KeyAdvances)
	if err != nil {
		return core.Advance{}, Snapshot{}, err
	}

	logChange(ctx, OpCreate, CollectionAdvances, a.ID, month, a.Amount.String())
	s.notify(ctx, RecordChanged{Collection: CollectionAdvances, Op: OpCreate, ID: a.ID, Month: month})
	return a, next, nil
}

func (s *Store) DeleteAdvance(ctx context.Context, id string) (Snapshot, error) {
	return s.deleteRecord(ctx, CollectionAdvances, id, func(cur Snapshot) (Snapshot, string, bool) {
		kept, removed, ok := without(cur.Advances, id, func(a core.Advance) string { return a.ID })
		cur.Advances = kept
		return cur, removed.Date.Period().String(), ok
	})
}

func (s *Store) AddStaff(ctx context.Context, name, role string) (core.StaffMember, Snapshot, error) {
	m := core.StaffMember{
		Name: strings.TrimSpace(name),
		Role: strings.TrimSpace(role),
	}
	if err := m.Validate(); err != nil {
		return core.StaffMember{}, Snapshot{}, fmt.Errorf("add staff: %w", err)
	}

	next, err := s.write(ctx, func(cur Snapshot) (Snapshot, error) {
		m.ID = s.newID()
		m.JoinedDate = s.now().UTC()
		cur.Staff = appendCopy(cur.Staff, m)
		return cur, nil
	}, KeyStaff)
	if err != nil {
		return core.StaffMember{}, Snapshot{}, err
	}

	logChange(ctx, OpCreate, CollectionStaff, m.ID, "", "")
	s.notify(ctx, RecordChanged{Collection: CollectionStaff, Op: OpCreate, ID: m.ID})
	return m, next, nil
}

// RemoveStaff drops a member from the roster. Their advances stay, with
// the name they were recorded under.
func (s *Store) RemoveStaff(ctx context.Context, id string) (Snapshot, error) {
	return s.deleteRecord(ctx, CollectionStaff, id, func(cur Snapshot) (Snapshot, string, bool) {
		kept, _, ok := without(cur.Staff, id, func(m core.StaffMember) string { return m.ID })
		cur.Staff = kept
		return cur, "", ok
	})
}

// Import replaces every collection with snap.
func (s *Store) Import(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("import: %w", err)
	}
	next := Snapshot{
		Revenue:  appendCopy(snap.Revenue),
		Expenses: appendCopy(snap.Expenses),
		Advances: appendCopy(snap.Advances),
		Staff:    appendCopy(snap.Staff),
	}

	s.mu.Lock()
	err := s.commitLocked(ctx, next, KeyRevenue, KeyExpenses, KeyAdvances, KeyStaff)
	if err == nil {
		s.loaded = true
	}
	s.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}

	slog.InfoContext(ctx, "Records imported",
		"revenue", len(next.Revenue), "expenses", len(next.Expenses),
		"advances", len(next.Advances), "staff", len(next.Staff))
	s.notify(ctx, RecordChanged{Collection: CollectionAll, Op: OpImport})
	return next, nil
}

func (s *Store) Close() error {
	if s.blobs == nil {
		return nil
	}
	return s.blobs.Close()
}

func (s *Store) deleteRecord(ctx context.Context, collection, id string, remove func(Snapshot) (Snapshot, string, bool)) (Snapshot, error) {
	var month string
	next, err := s.write(ctx, func(cur Snapshot) (Snapshot, error) {
		next, m, ok := remove(cur)
		if !ok {
			return Snapshot{}, fmt.Errorf("delete %s %q: %w", collection, id, ErrNotFound)
		}
		month = m
		return next, nil
	}, keyFor(collection))
	if err != nil {
		return Snapshot{}, err
	}

	logChange(ctx, OpDelete, collection, id, month, "")
	s.notify(ctx, RecordChanged{Collection: collection, Op: OpDelete, ID: id, Month: month})
	return next, nil
}

// write applies change to the current snapshot and persists the listed
// keys, all under the lock. Callers notify after it returns so notifiers
// never run while the lock is held.
func (s *Store) write(ctx context.Context, change func(cur Snapshot) (Snapshot, error), keys ...string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Snapshot{}, err
	}
	next, err := change(s.current)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.commitLocked(ctx, next, keys...); err != nil {
		return Snapshot{}, err
	}
	return next, nil
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	snap, err := Load(ctx, s.blobs)
	if err != nil {
		return err
	}
	s.current = snap
	s.loaded = true
	return nil
}

// Load reads all four collections from blobs. Missing blobs are empty
// collections.
func Load(ctx context.Context, blobs BlobStore) (Snapshot, error) {
	var snap Snapshot
	if err := readBlob(ctx, blobs, KeyRevenue, &snap.Revenue); err != nil {
		return Snapshot{}, err
	}
	if err := readBlob(ctx, blobs, KeyExpenses, &snap.Expenses); err != nil {
		return Snapshot{}, err
	}
	if err := readBlob(ctx, blobs, KeyAdvances, &snap.Advances); err != nil {
		return Snapshot{}, err
	}
	if err := readBlob(ctx, blobs, KeyStaff, &snap.Staff); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Reader loads a fresh snapshot on every call. It suits processes that
// read blobs written by another process, such as the export worker.
type Reader struct {
	blobs BlobStore
}

func NewReader(blobs BlobStore) *Reader {
	return &Reader{blobs: blobs}
}

func (r *Reader) Snapshot(ctx context.Context) (Snapshot, error) {
	return Load(ctx, r.blobs)
}

func readBlob(ctx context.Context, blobs BlobStore, key string, dst any) error {
	data, err := blobs.Get(ctx, key)
	if errors.Is(err, ErrBlobNotFound) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// commitLocked persists the listed collections of next and then makes it
// current. Either every listed key is written or none is, and on failure
// the current snapshot is left untouched.
func (s *Store) commitLocked(ctx context.Context, next Snapshot, keys ...string) error {
	writes := make([]BlobWrite, 0, len(keys))
	for _, key := range keys {
		var v any
		switch key {
		case KeyRevenue:
			v = nonNil(next.Revenue)
		case KeyExpenses:
			v = nonNil(next.Expenses)
		case KeyAdvances:
			v = nonNil(next.Advances)
		case KeyStaff:
			v = nonNil(next.Staff)
		default:
			return fmt.Errorf("unknown blob key %q", key)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		writes = append(writes, BlobWrite{Key: key, Data: data})
	}
	if err := s.persist(ctx, writes); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) persist(ctx context.Context, writes []BlobWrite) error {
	if len(writes) == 1 {
		if err := s.blobs.Put(ctx, writes[0].Key, writes[0].Data); err != nil {
			return fmt.Errorf("write %s: %w", writes[0].Key, err)
		}
		return nil
	}
	if bw, ok := s.blobs.(BatchWriter); ok {
		if err := bw.PutBatch(ctx, writes); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		return nil
	}

	prev := make([]BlobWrite, 0, len(writes))
	for _, w := range writes {
		data, err := s.blobs.Get(ctx, w.Key)
		if errors.Is(err, ErrBlobNotFound) {
			data, err = []byte("[]"), nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", w.Key, err)
		}
		prev = append(prev, BlobWrite{Key: w.Key, Data: data})
	}
	for i, w := range writes {
		if err := s.blobs.Put(ctx, w.Key, w.Data); err != nil {
			err = fmt.Errorf("write %s: %w", w.Key, err)
			return errors.Join(err, s.restore(ctx, prev[:i]))
		}
	}
	return nil
}

// restore puts back blobs overwritten by a failed multi-key write.
func (s *Store) restore(ctx context.Context, prev []BlobWrite) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, w := range prev {
		if err := s.blobs.Put(ctx, w.Key, w.Data); err != nil {
			slog.ErrorContext(ctx, "Failed to restore blob after partial write",
				"key", w.Key, "error", err)
			errs = append(errs, fmt.Errorf("restore %s: %w", w.Key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) notify(ctx context.Context, ev RecordChanged) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.RecordChanged(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish record change",
			"collection", ev.Collection, "op", ev.Op, "record_id", ev.ID, "error", err)
	}
}

// logChange logs through the request-scoped logger when ctx carries one.
func logChange(ctx context.Context, op, collection, id, month, amount string) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogRecordChange(ctx, op, collection, id, month, amount)
}

func keyFor(collection string) string {
	switch collection {
	case CollectionRevenue:
		return KeyRevenue
	case CollectionExpenses:
		return KeyExpenses
	case CollectionAdvances:
		return KeyAdvances
	default:
		return KeyStaff
	}
}

// appendCopy returns a fresh slice holding in followed by extra.
func appendCopy[T any](in []T, extra ...T) []T {
	out := make([]T, 0, len(in)+len(extra))
	out = append(out, in...)
	return append(out, extra...)
}

// without returns a fresh slice lacking the record with the given id.
func without[T any](in []T, id string, idOf func(T) string) ([]T, T, bool) {
	var removed T
	out := make([]T, 0, len(in))
	found := false
	for _, v := range in {
		if !found && idOf(v) == id {
			removed = v
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, removed, found
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
