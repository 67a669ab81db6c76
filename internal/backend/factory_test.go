package backend

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"labcash/internal/config"
	"labcash/internal/store"
)

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name        string
		config      Config
		wantJournal bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "file", config: Config{Type: FileBackend, DataDirectory: filepath.Join(dir, "blobs")}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "labcash.db")}, wantJournal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(slog.Default()).CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Cleanup()

			if (res.Journal != nil) != tt.wantJournal {
				t.Errorf("Journal present = %v, want %v", res.Journal != nil, tt.wantJournal)
			}
			if res.Notifier != nil {
				t.Errorf("Notifier should be nil without AMQP URL")
			}

			s := store.New(res.Blobs)
			if _, _, err := s.AddStaff(ctx, "Ali", ""); err != nil {
				t.Fatalf("AddStaff() error = %v", err)
			}
			snap, err := store.New(res.Blobs).Snapshot(ctx)
			if err != nil || len(snap.Staff) != 1 {
				t.Fatalf("fresh store over same blobs: staff=%d err=%v", len(snap.Staff), err)
			}
		})
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	cases := []Config{
		{Type: "sheets"},
		{Type: SQLiteBackend},
		{Type: FileBackend},
		{Type: MemoryBackend, AMQPURL: "amqp://localhost/"},
	}
	for _, c := range cases {
		if _, err := NewFactory(nil).CreateBackend(context.Background(), c); err == nil {
			t.Errorf("CreateBackend(%+v) expected error", c)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg := config.Config{DataBackend: "file", DataDir: "/var/lib/labcash", AMQPURL: "amqp://x/", AMQPExchange: "e", AMQPQueue: "q"}
	bc, err := FromAppConfig(&cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if bc.Type != FileBackend || bc.DataDirectory != "/var/lib/labcash" || bc.AMQPQueue != "q" {
		t.Errorf("unexpected backend config %+v", bc)
	}

	cfg.DataBackend = "postgres"
	if _, err := FromAppConfig(&cfg); err == nil {
		t.Errorf("expected error for unknown backend")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	want := []string{"memory", "file", "sqlite"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
