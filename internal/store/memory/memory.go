package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"labcash/internal/core"
	"labcash/internal/store"
)

// Blobs is a BlobStore that keeps everything in process memory.
type Blobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func New() *Blobs {
	return &Blobs{data: make(map[string][]byte)}
}

// NewFromFiles seeds the staff roster from base/seed_staff.txt, one
// "Name" or "Name,Role" per line. A missing file leaves the roster empty.
func NewFromFiles(base string) *Blobs {
	b := New()
	staff := seedStaff(readLines(filepath.Join(base, "seed_staff.txt")), time.Now().UTC())
	if len(staff) > 0 {
		if data, err := json.Marshal(staff); err == nil {
			b.data[store.KeyStaff] = data
		}
	}
	return b
}

func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, store.ErrBlobNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *Blobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), data...)
	return nil
}

// PutBatch writes every blob under one lock.
func (b *Blobs) PutBatch(_ context.Context, writes []store.BlobWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range writes {
		b.data[w.Key] = append([]byte(nil), w.Data...)
	}
	return nil
}

func (b *Blobs) Close() error { return nil }

func seedStaff(lines []string, joined time.Time) []core.StaffMember {
	out := make([]core.StaffMember, 0, len(lines))
	for _, line := range lines {
		name, role, _ := strings.Cut(line, ",")
		m := core.StaffMember{
			ID:         uuid.NewString(),
			Name:       strings.TrimSpace(name),
			Role:       strings.TrimSpace(role),
			JoinedDate: joined,
		}
		if m.Validate() != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated lines, keeping the first occurrence in order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
