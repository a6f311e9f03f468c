package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"saldo/internal/core"
)

func newID() string { return uuid.NewString() }

// LedgerService orchestrates record operations: submission (with
// series expansion for recurring templates), updates, series-aware
// deletion and the balance timeline. Mutations are fanned out to the
// sync worker through the publisher; publish failures never fail the
// request, the record is already durable locally.
type LedgerService struct {
	ledger    Ledger
	settings  SettingsStore
	generator *SeriesGenerator
	deleter   *SeriesDeleter
	publisher Publisher
}

func NewLedgerService(ledger Ledger, settings SettingsStore, generator *SeriesGenerator, publisher Publisher) *LedgerService {
	return &LedgerService{
		ledger:    ledger,
		settings:  settings,
		generator: generator,
		deleter:   NewSeriesDeleter(ledger),
		publisher: publisher,
	}
}

// SubmitRecord validates and stores a new record. A recurring template
// is expanded into its full series immediately; the returned slice is
// the materialized series (or the single record), date ascending.
func (s *LedgerService) SubmitRecord(ctx context.Context, rec core.Record) ([]core.Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = newID()
	}

	if rec.IsRecurring {
		written, err := s.generator.Generate(ctx, rec)
		if err != nil {
			return written, err
		}
		for _, w := range written {
			s.publishSync(ctx, w.ID, 1)
		}
		return written, nil
	}

	if err := s.ledger.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}
	s.publishSync(ctx, rec.ID, 1)
	return []core.Record{rec}, nil
}

// GenerateDue materializes every still-unexpanded template due as of
// asOf. Used by the recurring worker and the catch-up endpoint.
func (s *LedgerService) GenerateDue(ctx context.Context, asOf core.Date) ([]core.Record, error) {
	written, err := s.generator.GenerateDue(ctx, asOf)
	for _, w := range written {
		s.publishSync(ctx, w.ID, 1)
	}
	return written, err
}

// GetRecord loads one record or reports core.ErrNotFound.
func (s *LedgerService) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	rec, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return rec, nil
}

// ListRecords returns all records, date ascending.
func (s *LedgerService) ListRecords(ctx context.Context) ([]core.Record, error) {
	return s.ledger.List(ctx)
}

// UpdateRecord overwrites a record's mutable fields (including the
// received toggle for income).
func (s *LedgerService) UpdateRecord(ctx context.Context, rec core.Record) (*core.Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	n, err := s.ledger.Update(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, rec.ID)
	}
	s.publishSync(ctx, rec.ID, 2)
	return &rec, nil
}

// DeleteRecord removes the records selected by mode and returns the
// affected count.
func (s *LedgerService) DeleteRecord(ctx context.Context, id string, mode DeleteMode) (int64, error) {
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: unknown delete mode %q", core.ErrValidation, mode)
	}
	ids, err := s.deleter.Delete(ctx, id, mode)
	if err != nil {
		return 0, err
	}
	for _, deleted := range ids {
		s.publishDelete(ctx, deleted)
	}
	return int64(len(ids)), nil
}

// Timeline projects the records within [from, to] (or all records when
// the range is zero) into the daily realized balance, starting from
// the configured initial balance.
func (s *LedgerService) Timeline(ctx context.Context, from, to core.Date) ([]core.DailyBalance, error) {
	var (
		records []core.Record
		err     error
	)
	if from.IsZero() || to.IsZero() {
		records, err = s.ledger.List(ctx)
	} else {
		records, err = s.ledger.ListRange(ctx, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	starting, err := s.settings.InitialBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("load initial balance: %w", err)
	}

	return core.ProjectDailyBalances(records, starting), nil
}

func (s *LedgerService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

func (s *LedgerService) publishDelete(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
}
