package storage

import (
	"context"
	"sort"
	"sync"

	"saldo/internal/core"
)

// MemoryLedger is an in-memory ledger store with the same surface as
// SQLiteRepository. It backs the memory backend and the test suites.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]core.Record
	order   map[string]int // insertion sequence, tiebreak for equal dates
	seq     int

	initialBalance int64
	categories     map[string]core.Category
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records:    make(map[string]core.Record),
		order:      make(map[string]int),
		categories: make(map[string]core.Category),
	}
}

func (m *MemoryLedger) Insert(_ context.Context, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.order[rec.ID]; !exists {
		m.seq++
		m.order[rec.ID] = m.seq
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryLedger) Update(_ context.Context, rec core.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return 0, nil
	}
	m.records[rec.ID] = rec
	return 1, nil
}

func (m *MemoryLedger) FindByID(_ context.Context, id string) (*core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		cp := rec
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryLedger) FindBySeriesAndDate(_ context.Context, seriesID string, date core.Date) (*core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.SeriesID != nil && *rec.SeriesID == seriesID && rec.Date.Equal(date) {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryLedger) FindSeries(_ context.Context, seriesID string) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Record
	for _, rec := range m.records {
		if rec.SeriesID != nil && *rec.SeriesID == seriesID {
			out = append(out, rec)
		}
	}
	m.sortByDate(out)
	return out, nil
}

func (m *MemoryLedger) FindDueTemplates(_ context.Context, asOf core.Date) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Record
	for _, rec := range m.records {
		if !rec.IsRecurring || rec.SeriesID != nil {
			continue
		}
		if rec.RecurrenceEndDate != nil && rec.RecurrenceEndDate.Before(asOf) {
			continue
		}
		out = append(out, rec)
	}
	m.sortByDate(out)
	return out, nil
}

func (m *MemoryLedger) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryLedger) List(_ context.Context) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	m.sortByDate(out)
	return out, nil
}

func (m *MemoryLedger) ListRange(_ context.Context, from, to core.Date) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Record
	for _, rec := range m.records {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	m.sortByDate(out)
	return out, nil
}

func (m *MemoryLedger) InitialBalance(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialBalance, nil
}

func (m *MemoryLedger) SetInitialBalance(_ context.Context, cents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialBalance = cents
	return nil
}

func (m *MemoryLedger) ListCategories(_ context.Context) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryLedger) CreateCategory(_ context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[string(c.Kind)+"/"+c.Name] = c
	return nil
}

func (m *MemoryLedger) DeleteCategory(_ context.Context, name string, kind core.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, string(kind)+"/"+name)
	return nil
}

// sortByDate orders records date-ascending with insertion order as the
// tiebreak, matching the SQLite repository's ORDER BY.
func (m *MemoryLedger) sortByDate(records []core.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return m.order[records[i].ID] < m.order[records[j].ID]
	})
}
