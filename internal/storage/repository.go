// Package storage implements the durable ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"saldo/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, kind, amount_cents, description, category, date,
	is_recurring, recurrence_unit, recurrence_interval, recurrence_end_date,
	series_id, received, created_at, updated_at`

// Insert stores a new record. The caller assigns the ID.
func (r *SQLiteRepository) Insert(ctx context.Context, rec core.Record) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, amount_cents, description, category, date,
			is_recurring, recurrence_unit, recurrence_interval, recurrence_end_date,
			series_id, received, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		rec.ID, string(rec.Kind), rec.Amount.Cents, rec.Description, rec.Category,
		rec.Date.String(), boolToInt(rec.IsRecurring), nullUnit(rec.RecurrenceUnit),
		rec.RecurrenceInterval, nullDate(rec.RecurrenceEndDate), nullString(rec.SeriesID),
		boolToInt(rec.Received), now, now)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"kind", rec.Kind,
		"description", rec.Description,
		"amount_cents", rec.Amount.Cents,
		"date", rec.Date.String())

	return nil
}

// Update overwrites an existing record's fields and returns the number
// of affected rows.
func (r *SQLiteRepository) Update(ctx context.Context, rec core.Record) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET kind = ?, amount_cents = ?, description = ?, category = ?, date = ?,
			is_recurring = ?, recurrence_unit = ?, recurrence_interval = ?,
			recurrence_end_date = ?, series_id = ?, received = ?,
			sync_status = 'pending', updated_at = ?
		WHERE id = ?`,
		string(rec.Kind), rec.Amount.Cents, rec.Description, rec.Category,
		rec.Date.String(), boolToInt(rec.IsRecurring), nullUnit(rec.RecurrenceUnit),
		rec.RecurrenceInterval, nullDate(rec.RecurrenceEndDate), nullString(rec.SeriesID),
		boolToInt(rec.Received), now, rec.ID)
	if err != nil {
		return 0, fmt.Errorf("update record: %w", err)
	}
	return res.RowsAffected()
}

// FindByID returns the record with the given id, or nil when absent.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record %s: %w", id, err)
	}
	return rec, nil
}

// FindBySeriesAndDate returns the series member dated exactly date, or
// nil when no such instance exists. This is the generator's
// idempotency probe.
func (r *SQLiteRepository) FindBySeriesAndDate(ctx context.Context, seriesID string, date core.Date) (*core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE series_id = ? AND date = ?`,
		seriesID, date.String())
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find series %s instance %s: %w", seriesID, date, err)
	}
	return rec, nil
}

// FindSeries returns every record referencing seriesID, date ascending.
func (r *SQLiteRepository) FindSeries(ctx context.Context, seriesID string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE series_id = ? ORDER BY date ASC, created_at ASC`,
		seriesID)
	if err != nil {
		return nil, fmt.Errorf("find series %s: %w", seriesID, err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// FindDueTemplates returns the still-unexpanded recurring templates
// whose series is not finished as of asOf.
func (r *SQLiteRepository) FindDueTemplates(ctx context.Context, asOf core.Date) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE is_recurring = 1
		  AND series_id IS NULL
		  AND (recurrence_end_date IS NULL OR recurrence_end_date >= ?)
		ORDER BY date ASC`,
		asOf.String())
	if err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// DeleteByIDs removes the given records and returns how many rows went.
func (r *SQLiteRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Records deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

// List returns all records, date ascending.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListRange returns records dated within [from, to], date ascending.
func (r *SQLiteRepository) ListRange(ctx context.Context, from, to core.Date) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list records %s..%s: %w", from, to, err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// PendingSync returns records not yet exported, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_status = 'synced' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sync error %s: %w", id, err)
	}
	return nil
}

// InitialBalance returns the configured starting balance in cents.
// A missing settings row means zero.
func (r *SQLiteRepository) InitialBalance(ctx context.Context) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT initial_balance_cents FROM settings WHERE id = 1`).Scan(&cents)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read initial balance: %w", err)
	}
	return cents, nil
}

func (r *SQLiteRepository) SetInitialBalance(ctx context.Context, cents int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, initial_balance_cents, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET initial_balance_cents = excluded.initial_balance_cents,
			updated_at = excluded.updated_at`,
		cents, now)
	if err != nil {
		return fmt.Errorf("set initial balance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, kind, icon, color FROM categories ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.Name, &kind, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, kind, icon, color) VALUES (?, ?, ?, ?)
		ON CONFLICT (name, kind) DO UPDATE SET icon = excluded.icon, color = excluded.color`,
		c.Name, string(c.Kind), c.Icon, c.Color)
	if err != nil {
		return fmt.Errorf("create category %s: %w", c.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, name string, kind core.Kind) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE name = ? AND kind = ?`, name, string(kind))
	if err != nil {
		return fmt.Errorf("delete category %s: %w", name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.Record, error) {
	var (
		rec                    core.Record
		kind, date             string
		isRecurring, received  int
		unit, endDate, series  sql.NullString
		createdAt, updatedAt   string
	)
	err := row.Scan(&rec.ID, &kind, &rec.Amount.Cents, &rec.Description, &rec.Category,
		&date, &isRecurring, &unit, &rec.RecurrenceInterval, &endDate,
		&series, &received, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Kind = core.Kind(kind)
	rec.IsRecurring = isRecurring != 0
	rec.Received = received != 0
	if rec.Date, err = core.ParseDate(date); err != nil {
		return nil, err
	}
	if unit.Valid {
		rec.RecurrenceUnit = core.Unit(unit.String)
	}
	if endDate.Valid {
		d, err := core.ParseDate(endDate.String)
		if err != nil {
			return nil, err
		}
		rec.RecurrenceEndDate = &d
	}
	if series.Valid {
		s := series.String
		rec.SeriesID = &s
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]core.Record, error) {
	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullUnit(u core.Unit) any {
	if u == "" {
		return nil
	}
	return string(u)
}

func nullDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
