package services

import (
	"context"
	"errors"
	"testing"

	"saldo/internal/core"
	"saldo/internal/storage"
)

type recordedPublish struct {
	syncs   []string
	deletes []string
}

func (p *recordedPublish) PublishRecordSync(_ context.Context, id string, _ int64) error {
	p.syncs = append(p.syncs, id)
	return nil
}

func (p *recordedPublish) PublishRecordDelete(_ context.Context, id string) error {
	p.deletes = append(p.deletes, id)
	return nil
}

func newTestService(ledger *storage.MemoryLedger, pub Publisher) *LedgerService {
	return NewLedgerService(ledger, ledger, NewSeriesGenerator(ledger, 0), pub)
}

func TestSubmitRecord_Standalone(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	pub := &recordedPublish{}
	svc := newTestService(ledger, pub)

	date, _ := core.ParseDate("2024-03-10")
	written, err := svc.SubmitRecord(ctx, core.Record{
		Kind:        core.Income,
		Amount:      core.Money{Cents: 250000},
		Description: "salary",
		Category:    "work",
		Date:        date,
		Received:    true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("wrote %d records, want 1", len(written))
	}
	if written[0].ID == "" {
		t.Error("no id assigned")
	}
	if len(pub.syncs) != 1 {
		t.Errorf("published %d sync messages, want 1", len(pub.syncs))
	}
}

func TestSubmitRecord_RecurringExpandsSeries(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	pub := &recordedPublish{}
	svc := newTestService(ledger, pub)

	written, err := svc.SubmitRecord(ctx, monthlyTemplate("", "2024-05-15"))
	if err != nil {
		t.Fatalf("submit recurring: %v", err)
	}
	if len(written) != 5 {
		t.Fatalf("wrote %d records, want 5", len(written))
	}
	if len(pub.syncs) != 5 {
		t.Errorf("published %d sync messages, want 5", len(pub.syncs))
	}
}

func TestSubmitRecord_ValidationBeforeMutation(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	svc := newTestService(ledger, nil)

	rec := monthlyTemplate("", "2024-05-15")
	rec.Amount = core.Money{}
	if _, err := svc.SubmitRecord(ctx, rec); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	all, _ := ledger.List(ctx)
	if len(all) != 0 {
		t.Errorf("store mutated by invalid submission: %d records", len(all))
	}
}

func TestUpdateRecord_ReceivedToggleChangesTimeline(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	svc := newTestService(ledger, nil)

	if err := ledger.SetInitialBalance(ctx, 50000); err != nil {
		t.Fatal(err)
	}
	date, _ := core.ParseDate("2024-03-10")
	written, err := svc.SubmitRecord(ctx, core.Record{
		Kind:        core.Income,
		Amount:      core.Money{Cents: 10000},
		Description: "invoice",
		Date:        date,
	})
	if err != nil {
		t.Fatal(err)
	}

	timeline, err := svc.Timeline(ctx, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Balance.Cents != 50000 {
		t.Fatalf("unreceived income timeline = %+v, want balance 50000", timeline)
	}

	rec := written[0]
	rec.Received = true
	if _, err := svc.UpdateRecord(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	timeline, err = svc.Timeline(ctx, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if timeline[0].Balance.Cents != 60000 {
		t.Errorf("received income balance = %d, want 60000", timeline[0].Balance.Cents)
	}
}

func TestUpdateRecord_NotFound(t *testing.T) {
	svc := newTestService(storage.NewMemoryLedger(), nil)
	date, _ := core.ParseDate("2024-03-10")
	_, err := svc.UpdateRecord(context.Background(), core.Record{
		ID: "missing", Kind: core.Expense, Amount: core.Money{Cents: 100},
		Description: "x", Date: date,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRecord_PublishesPerDeletedRecord(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	pub := &recordedPublish{}
	svc := newTestService(ledger, pub)

	written, err := svc.SubmitRecord(ctx, monthlyTemplate("", "2024-05-15"))
	if err != nil {
		t.Fatal(err)
	}

	n, err := svc.DeleteRecord(ctx, written[2].ID, DeleteForward)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d, want 3", n)
	}
	if len(pub.deletes) != 3 {
		t.Errorf("published %d delete messages, want 3", len(pub.deletes))
	}
}

func TestDeleteRecord_UnknownMode(t *testing.T) {
	svc := newTestService(storage.NewMemoryLedger(), nil)
	if _, err := svc.DeleteRecord(context.Background(), "x", "everything"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTimeline_RangeFiltering(t *testing.T) {
	ctx := context.Background()
	ledger := storage.NewMemoryLedger()
	svc := newTestService(ledger, nil)

	for _, day := range []string{"2024-01-10", "2024-02-10", "2024-03-10"} {
		date, _ := core.ParseDate(day)
		if _, err := svc.SubmitRecord(ctx, core.Record{
			Kind: core.Expense, Amount: core.Money{Cents: 1000},
			Description: "coffee", Date: date,
		}); err != nil {
			t.Fatal(err)
		}
	}

	from, _ := core.ParseDate("2024-02-01")
	to, _ := core.ParseDate("2024-02-28")
	timeline, err := svc.Timeline(ctx, from, to)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Date.String() != "2024-02-10" {
		t.Fatalf("range timeline = %+v, want single february day", timeline)
	}
}
