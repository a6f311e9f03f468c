// Package worker runs the background jobs: exporting records to the
// spreadsheet and materializing due recurring series.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/export"
)

// SyncStore is the slice of the record store the sync worker needs.
type SyncStore interface {
	FindByID(ctx context.Context, id string) (*core.Record, error)
	PendingSync(ctx context.Context, limit int) ([]core.Record, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker mirrors record mutations from the local database to the
// spreadsheet. It consumes AMQP messages and periodically sweeps for
// records stuck in pending state as a backup for lost messages.
type SyncWorker struct {
	store     SyncStore
	writer    export.RecordWriter
	deleter   export.RecordDeleter
	batchSize int
}

func NewSyncWorker(store SyncStore, writer export.RecordWriter, deleter export.RecordDeleter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
// The record is re-read from the store so a stale message can never
// export outdated data.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	rec, err := w.store.FindByID(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		// Deleted between publish and consume; nothing to export.
		slog.WarnContext(ctx, "Record no longer exists, skipping sync", "id", msg.ID)
		return nil
	}

	// A re-sync of an updated record replaces its exported row.
	if msg.Version > 1 && w.deleter != nil {
		if err := w.deleter.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove stale exported row: %w", err)
		}
	}

	return w.exportRecord(ctx, *rec)
}

// HandleDeleteMessage processes a single record delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.RecordDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No export deleter configured, skipping remote deletion", "id", msg.ID)
		return nil
	}

	if err := w.deleter.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove exported record: %w", err)
	}

	slog.InfoContext(ctx, "Removed exported record", "id", msg.ID)
	return nil
}

// ProcessPending exports records that never made it out, a backup
// mechanism in case AMQP messages are lost. Returns the number of
// records exported.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending records: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	synced := 0
	for _, rec := range pending {
		if err := w.exportRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export record", "id", rec.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck drains a larger pending batch once at worker
// startup, recovering from missed messages or downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("load pending records for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup", "count", len(pending))

	synced, errored := 0, 0
	for _, rec := range pending {
		if err := w.exportRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup", "id", rec.ID, "error", err)
			errored++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", errored)
	return nil
}

func (w *SyncWorker) exportRecord(ctx context.Context, rec core.Record) error {
	ref, err := w.writer.Append(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to export target: %w", err)
	}

	if err := w.store.MarkSynced(ctx, rec.ID); err != nil {
		// The export itself worked; report but don't fail.
		slog.ErrorContext(ctx, "Failed to mark record as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported record",
		"id", rec.ID,
		"row_ref", ref,
		"description", rec.Description,
		"amount_cents", rec.Amount.Cents)
	return nil
}
