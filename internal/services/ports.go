// Package services holds the ledger's business logic: series
// materialization, series-aware deletion and the orchestration service
// behind the HTTP layer.
package services

import (
	"context"

	"saldo/internal/core"
)

// Ledger is the durable record store the services run against. Both
// the SQLite repository and the in-memory store satisfy it.
type Ledger interface {
	Insert(ctx context.Context, rec core.Record) error
	Update(ctx context.Context, rec core.Record) (int64, error)
	FindByID(ctx context.Context, id string) (*core.Record, error)
	FindBySeriesAndDate(ctx context.Context, seriesID string, date core.Date) (*core.Record, error)
	FindSeries(ctx context.Context, seriesID string) ([]core.Record, error)
	FindDueTemplates(ctx context.Context, asOf core.Date) ([]core.Record, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	List(ctx context.Context) ([]core.Record, error)
	ListRange(ctx context.Context, from, to core.Date) ([]core.Record, error)
}

// SettingsStore persists the user's starting balance.
type SettingsStore interface {
	InitialBalance(ctx context.Context) (int64, error)
	SetInitialBalance(ctx context.Context, cents int64) error
}

// CategoryStore persists the category labels shown by the UI.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, name string, kind core.Kind) error
}

// Publisher fans mutations out to the sync worker. Implementations
// must tolerate being nil-checked by callers; publishing is always
// best effort.
type Publisher interface {
	PublishRecordSync(ctx context.Context, id string, version int64) error
	PublishRecordDelete(ctx context.Context, id string) error
}
