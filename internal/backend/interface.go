package backend

import (
	"context"

	"labcash/internal/storage"
	"labcash/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult carries the blob store plus the optional pieces that share
// its lifetime.
type BackendResult struct {
	Blobs store.BlobStore

	// Notifier publishes change events to AMQP. Nil when AMQP is disabled
	// or unreachable at startup.
	Notifier store.Notifier

	// Journal records finished exports. Only the sqlite backend has one.
	Journal *storage.SQLiteRepository

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File and memory backends
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
