package attendance

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type dayKey struct {
	employeeID string
	date       time.Time
}

// MemoryStore keeps attendance in process; transactions are serialized and
// applied only when they succeed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	byDay   map[dayKey]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, byDay: map[dayKey]string{}, now: time.Now}
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{records: maps.Clone(m.records), byDay: maps.Clone(m.byDay), now: m.now}
	if err := fn(tx); err != nil {
		return err
	}
	m.records, m.byDay = tx.records, tx.byDay
	return nil
}

func (m *MemoryStore) GetRecord(ctx context.Context, recordID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[recordID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if !filter.From.IsZero() && r.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.Date.After(filter.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

type memTx struct {
	records map[string]Record
	byDay   map[dayKey]string
	now     func() time.Time
}

func (t *memTx) LockEmployee(ctx context.Context, employeeID string) error {
	return nil
}

func (t *memTx) GetForDate(ctx context.Context, employeeID string, date time.Time) (Record, error) {
	id, ok := t.byDay[dayKey{employeeID, date}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return t.records[id], nil
}

func (t *memTx) Insert(ctx context.Context, rec *Record) error {
	key := dayKey{rec.EmployeeID, rec.Date}
	if _, exists := t.byDay[key]; exists {
		return ErrAlreadyRecorded
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = t.now()
	rec.UpdatedAt = rec.CreatedAt
	t.records[rec.ID] = *rec
	t.byDay[key] = rec.ID
	return nil
}

func (t *memTx) Update(ctx context.Context, rec *Record) error {
	if _, ok := t.records[rec.ID]; !ok {
		return ErrNotFound
	}
	rec.UpdatedAt = t.now()
	t.records[rec.ID] = *rec
	return nil
}
