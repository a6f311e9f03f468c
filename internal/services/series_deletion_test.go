package services

import (
	"context"
	"errors"
	"testing"

	"saldo/internal/core"
	"saldo/internal/storage"
)

// expandedSeries seeds a materialized 5-instance monthly series and
// returns the instance ids in date order.
func expandedSeries(t *testing.T, ledger *storage.MemoryLedger) []string {
	t.Helper()
	ctx := context.Background()
	gen := NewSeriesGenerator(ledger, 0)
	written, err := gen.Generate(ctx, monthlyTemplate("root", "2024-05-15"))
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}
	ids := make([]string, len(written))
	for i, rec := range written {
		ids[i] = rec.ID
	}
	return ids
}

func TestDeleteOne(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	ids := expandedSeries(t, ledger)
	del := NewSeriesDeleter(ledger)

	n, err := del.DeleteOne(ctx, ids[2])
	if err != nil {
		t.Fatalf("delete single: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d records, want 1", n)
	}
	remaining, _ := ledger.FindSeries(ctx, "root")
	if len(remaining) != 4 {
		t.Errorf("series has %d records, want 4", len(remaining))
	}
}

func TestDeleteFromHere_RemovesLaterInstances(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	ids := expandedSeries(t, ledger)
	del := NewSeriesDeleter(ledger)

	// Delete the 3rd of 5: instances 3, 4, 5 go, 1 and 2 stay.
	n, err := del.DeleteFromHere(ctx, ids[2])
	if err != nil {
		t.Fatalf("delete forward: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d records, want 3", n)
	}

	remaining, _ := ledger.FindSeries(ctx, "root")
	if len(remaining) != 2 {
		t.Fatalf("series has %d records, want 2", len(remaining))
	}
	if remaining[0].ID != ids[0] || remaining[1].ID != ids[1] {
		t.Errorf("wrong survivors: %s, %s", remaining[0].ID, remaining[1].ID)
	}
}

func TestDeleteFromHere_StandaloneDegradesToSeries(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	del := NewSeriesDeleter(ledger)

	// An unexpanded template has no series reference yet.
	tpl := monthlyTemplate("tpl", "2024-05-15")
	if err := ledger.Insert(ctx, tpl); err != nil {
		t.Fatal(err)
	}

	n, err := del.DeleteFromHere(ctx, "tpl")
	if err != nil {
		t.Fatalf("delete forward on standalone: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d records, want 1", n)
	}
	if rec, _ := ledger.FindByID(ctx, "tpl"); rec != nil {
		t.Error("template still present after delete")
	}
}

func TestDeleteWholeSeries(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	ids := expandedSeries(t, ledger)
	del := NewSeriesDeleter(ledger)

	// Deleting via a middle instance removes the entire series.
	n, err := del.DeleteWholeSeries(ctx, ids[3])
	if err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if n != 5 {
		t.Fatalf("deleted %d records, want 5", n)
	}
	remaining, _ := ledger.FindSeries(ctx, "root")
	if len(remaining) != 0 {
		t.Errorf("series still has %d records", len(remaining))
	}
}

func TestDelete_NotFound(t *testing.T) {
	del := NewSeriesDeleter(storage.NewMemoryLedger())
	for _, mode := range []DeleteMode{DeleteSingle, DeleteForward, DeleteSeries} {
		_, err := del.Delete(context.Background(), "missing", mode)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("mode %s: err = %v, want ErrNotFound", mode, err)
		}
	}
}

// brokenSeriesLedger claims a series for the target record but omits
// it from the series listing, simulating corrupted data.
type brokenSeriesLedger struct {
	*storage.MemoryLedger
}

func (b *brokenSeriesLedger) FindSeries(ctx context.Context, seriesID string) ([]core.Record, error) {
	members, err := b.MemoryLedger.FindSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	out := members[:0]
	for _, m := range members {
		if m.ID != "phantom" {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestDeleteFromHere_IntegrityErrorDeletesNothing(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryLedger()
	expandedSeries(t, mem)

	sid := "root"
	date, _ := core.ParseDate("2024-06-15")
	if err := mem.Insert(ctx, core.Record{
		ID: "phantom", Kind: core.Expense, Amount: core.Money{Cents: 100},
		Description: "rent 6/5", Date: date, SeriesID: &sid,
	}); err != nil {
		t.Fatal(err)
	}

	del := NewSeriesDeleter(&brokenSeriesLedger{mem})
	_, err := del.DeleteFromHere(ctx, "phantom")
	if !errors.Is(err, core.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}

	// Nothing was deleted.
	all, _ := mem.List(ctx)
	if len(all) != 6 {
		t.Errorf("ledger has %d records after aborted delete, want 6", len(all))
	}
}
