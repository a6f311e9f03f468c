// Package backend selects and wires the data store behind the ledger
// service based on configuration.
package backend

import (
	"context"

	"saldo/internal/services"
)

// Store is the full persistence surface the application needs: records,
// settings and categories. Both the SQLite repository and the in-memory
// store satisfy it.
type Store interface {
	services.Ledger
	services.SettingsStore
	services.CategoryStore
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result carries the wired store, the optional mutation publisher and
// the cleanup function.
type Result struct {
	Store     Store
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// AMQP fan-out (optional; sqlite backend only)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Type identifies the backend implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
