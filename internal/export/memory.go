package export

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/core"
)

// MemoryExporter keeps exported rows in memory. Used in tests and when
// no spreadsheet is configured.
type MemoryExporter struct {
	mu   sync.Mutex
	rows []core.Record
}

var (
	_ RecordWriter  = (*MemoryExporter)(nil)
	_ RecordDeleter = (*MemoryExporter)(nil)
)

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (m *MemoryExporter) Append(_ context.Context, rec core.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rec)
	return fmt.Sprintf("row-%d", len(m.rows)), nil
}

func (m *MemoryExporter) Remove(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == recordID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a snapshot of the exported rows.
func (m *MemoryExporter) Rows() []core.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Record, len(m.rows))
	copy(out, m.rows)
	return out
}
