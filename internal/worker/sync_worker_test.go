package worker

import (
	"context"
	"errors"
	"testing"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/export"
)

type fakeSyncStore struct {
	records    map[string]core.Record
	pending    []string
	synced     []string
	syncErrors []string
}

func newFakeSyncStore(recs ...core.Record) *fakeSyncStore {
	s := &fakeSyncStore{records: make(map[string]core.Record)}
	for _, r := range recs {
		s.records[r.ID] = r
		s.pending = append(s.pending, r.ID)
	}
	return s
}

func (s *fakeSyncStore) FindByID(_ context.Context, id string) (*core.Record, error) {
	if rec, ok := s.records[id]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *fakeSyncStore) PendingSync(_ context.Context, limit int) ([]core.Record, error) {
	var out []core.Record
	for _, id := range s.pending {
		if len(out) == limit {
			break
		}
		out = append(out, s.records[id])
	}
	return out, nil
}

func (s *fakeSyncStore) MarkSynced(_ context.Context, id string) error {
	s.synced = append(s.synced, id)
	for i, p := range s.pending {
		if p == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeSyncStore) MarkSyncError(_ context.Context, id string) error {
	s.syncErrors = append(s.syncErrors, id)
	return nil
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, core.Record) (string, error) {
	return "", errors.New("spreadsheet unavailable")
}

func testRecord(id string) core.Record {
	date, _ := core.ParseDate("2024-06-01")
	return core.Record{
		ID:          id,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 1500},
		Description: "lunch",
		Date:        date,
	}
}

func TestHandleSyncMessage_ExportsAndMarksSynced(t *testing.T) {
	ctx := context.Background()
	store := newFakeSyncStore(testRecord("r1"))
	exporter := export.NewMemoryExporter()
	w := NewSyncWorker(store, exporter, exporter, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage("r1", 1)); err != nil {
		t.Fatalf("handle sync: %v", err)
	}
	if rows := exporter.Rows(); len(rows) != 1 || rows[0].ID != "r1" {
		t.Fatalf("exported rows = %+v", rows)
	}
	if len(store.synced) != 1 || store.synced[0] != "r1" {
		t.Errorf("synced = %v, want [r1]", store.synced)
	}
}

func TestHandleSyncMessage_MissingRecordSkipped(t *testing.T) {
	store := newFakeSyncStore()
	exporter := export.NewMemoryExporter()
	w := NewSyncWorker(store, exporter, exporter, 10)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage("ghost", 1)); err != nil {
		t.Fatalf("missing record should not error: %v", err)
	}
	if len(exporter.Rows()) != 0 {
		t.Error("exported a row for a missing record")
	}
}

func TestHandleSyncMessage_UpdateReplacesRow(t *testing.T) {
	ctx := context.Background()
	rec := testRecord("r1")
	store := newFakeSyncStore(rec)
	exporter := export.NewMemoryExporter()
	w := NewSyncWorker(store, exporter, exporter, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage("r1", 1)); err != nil {
		t.Fatal(err)
	}

	rec.Description = "dinner"
	store.records["r1"] = rec
	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage("r1", 2)); err != nil {
		t.Fatal(err)
	}

	rows := exporter.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 after replace", len(rows))
	}
	if rows[0].Description != "dinner" {
		t.Errorf("row description = %q, want updated value", rows[0].Description)
	}
}

func TestHandleDeleteMessage_RemovesRow(t *testing.T) {
	ctx := context.Background()
	store := newFakeSyncStore(testRecord("r1"))
	exporter := export.NewMemoryExporter()
	w := NewSyncWorker(store, exporter, exporter, 10)

	if err := w.HandleSyncMessage(ctx, amqp.NewRecordSyncMessage("r1", 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleDeleteMessage(ctx, amqp.NewRecordDeleteMessage("r1")); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(exporter.Rows()) != 0 {
		t.Error("row still present after delete")
	}
}

func TestProcessPending_ExportsBatch(t *testing.T) {
	store := newFakeSyncStore(testRecord("r1"), testRecord("r2"), testRecord("r3"))
	exporter := export.NewMemoryExporter()
	w := NewSyncWorker(store, exporter, exporter, 2)

	n, err := w.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 2 {
		t.Errorf("synced %d, want batch size 2", n)
	}
	if len(store.pending) != 1 {
		t.Errorf("pending left = %d, want 1", len(store.pending))
	}
}

func TestExportFailure_MarksSyncError(t *testing.T) {
	store := newFakeSyncStore(testRecord("r1"))
	w := NewSyncWorker(store, failingWriter{}, nil, 10)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewRecordSyncMessage("r1", 1)); err == nil {
		t.Fatal("expected error from failing writer")
	}
	if len(store.syncErrors) != 1 || store.syncErrors[0] != "r1" {
		t.Errorf("sync errors = %v, want [r1]", store.syncErrors)
	}
	if len(store.synced) != 0 {
		t.Error("record marked synced despite export failure")
	}
}
