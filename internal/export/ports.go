// Package export mirrors ledger records to an external spreadsheet.
package export

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter appends one record to the export target and returns
	// a reference to the written row.
	RecordWriter interface {
		Append(ctx context.Context, rec core.Record) (rowRef string, err error)
	}

	// RecordDeleter removes a previously exported record by its id.
	RecordDeleter interface {
		Remove(ctx context.Context, recordID string) error
	}
)
