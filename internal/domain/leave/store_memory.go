package leave

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type balanceKey struct {
	employeeID  string
	leaveTypeID string
	year        int
}

type ledgerKey struct {
	balanceKey
	month int
}

type memoryState struct {
	employees map[string]EmployeeRef
	types     map[string]LeaveType
	holidays  map[string]Holiday
	balances  map[balanceKey]Balance
	requests  map[string]LeaveRequest
	ledger    map[ledgerKey]decimal.Decimal
}

func (s memoryState) clone() memoryState {
	return memoryState{
		employees: maps.Clone(s.employees),
		types:     maps.Clone(s.types),
		holidays:  maps.Clone(s.holidays),
		balances:  maps.Clone(s.balances),
		requests:  maps.Clone(s.requests),
		ledger:    maps.Clone(s.ledger),
	}
}

// MemoryStore is an in-process StoreAPI. Transactions are serialized and
// staged on a copy of the state that replaces it only on success.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			employees: map[string]EmployeeRef{},
			types:     map[string]LeaveType{},
			holidays:  map[string]Holiday{},
			balances:  map[balanceKey]Balance{},
			requests:  map[string]LeaveRequest{},
			ledger:    map[ledgerKey]decimal.Decimal{},
		},
		now: time.Now,
	}
}

// PutEmployee registers or replaces the employee reference used for locking and scoping.
func (m *MemoryStore) PutEmployee(ref EmployeeRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.employees[ref.ID] = ref
}

// PutBalance seeds a balance row directly.
func (m *MemoryStore) PutBalance(b Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	m.state.balances[balanceKey{b.EmployeeID, b.LeaveTypeID, b.Year}] = b
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.state.clone()
	if err := fn(&memTx{state: &staged, now: m.now}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *MemoryStore) ListTypes(ctx context.Context) ([]LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedTypes(m.state.types), nil
}

func (m *MemoryStore) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.state.types[leaveTypeID]
	if !ok {
		return LeaveType{}, ErrLeaveTypeNotFound
	}
	return t, nil
}

func (m *MemoryStore) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.state.types {
		if strings.EqualFold(existing.Name, payload.Name) {
			return "", ErrDuplicateLeaveType
		}
	}
	payload.ID = uuid.NewString()
	payload.CreatedAt = m.now()
	m.state.types[payload.ID] = payload
	return payload.ID, nil
}

func (m *MemoryStore) UpdateType(ctx context.Context, payload LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.state.types[payload.ID]
	if !ok {
		return ErrLeaveTypeNotFound
	}
	for id, existing := range m.state.types {
		if id != payload.ID && strings.EqualFold(existing.Name, payload.Name) {
			return ErrDuplicateLeaveType
		}
	}
	payload.CreatedAt = current.CreatedAt
	m.state.types[payload.ID] = payload
	return nil
}

func (m *MemoryStore) ListHolidays(ctx context.Context) ([]Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedHolidays(m.state.holidays), nil
}

func (m *MemoryStore) CreateHoliday(ctx context.Context, holiday Holiday) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	holiday.ID = uuid.NewString()
	holiday.Date = DateOnly(holiday.Date)
	m.state.holidays[holiday.ID] = holiday
	return holiday.ID, nil
}

func (m *MemoryStore) DeleteHoliday(ctx context.Context, holidayID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.holidays[holidayID]; !ok {
		return ErrHolidayNotFound
	}
	delete(m.state.holidays, holidayID)
	return nil
}

func (m *MemoryStore) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Balance
	for key, b := range m.state.balances {
		if key.employeeID == employeeID && (year == 0 || key.year == year) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].LeaveTypeID < out[j].LeaveTypeID
	})
	return out, nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.state.requests[requestID]
	if !ok {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return r, nil
}

func (m *MemoryStore) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []LeaveRequest
	for _, r := range m.state.requests {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.ManagerEmployeeID != "" && m.state.employees[r.EmployeeID].ManagerID != filter.ManagerEmployeeID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
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

func sortedTypes(types map[string]LeaveType) []LeaveType {
	out := make([]LeaveType, 0, len(types))
	for _, t := range types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedHolidays(holidays map[string]Holiday) []Holiday {
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type memTx struct {
	state *memoryState
	now   func() time.Time
}

func (t *memTx) LockEmployee(ctx context.Context, employeeID string) (EmployeeRef, error) {
	ref, ok := t.state.employees[employeeID]
	if !ok {
		return EmployeeRef{}, ErrEmployeeNotFound
	}
	return ref, nil
}

func (t *memTx) ActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id, ref := range t.state.employees {
		if ref.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *memTx) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	lt, ok := t.state.types[leaveTypeID]
	if !ok {
		return LeaveType{}, ErrLeaveTypeNotFound
	}
	return lt, nil
}

func (t *memTx) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return sortedTypes(t.state.types), nil
}

func (t *memTx) ListHolidays(ctx context.Context) ([]Holiday, error) {
	return sortedHolidays(t.state.holidays), nil
}

func (t *memTx) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	r, ok := t.state.requests[requestID]
	if !ok {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return r, nil
}

func (t *memTx) GetRequestForUpdate(ctx context.Context, requestID string) (LeaveRequest, error) {
	return t.GetRequest(ctx, requestID)
}

func (t *memTx) ActiveRequestsInRange(ctx context.Context, employeeID string, start, end time.Time) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, r := range t.state.requests {
		if r.EmployeeID == employeeID && r.Active() && Overlaps(r.StartDate, r.EndDate, start, end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (t *memTx) InsertRequest(ctx context.Context, req *LeaveRequest) error {
	req.ID = uuid.NewString()
	req.Version = 1
	req.CreatedAt = t.now()
	req.StartDate, req.EndDate = DateOnly(req.StartDate), DateOnly(req.EndDate)
	t.state.requests[req.ID] = *req
	return nil
}

func (t *memTx) UpdateRequest(ctx context.Context, req *LeaveRequest) error {
	current, ok := t.state.requests[req.ID]
	if !ok || current.Version != req.Version {
		return ErrConflict
	}
	req.Version++
	t.state.requests[req.ID] = *req
	return nil
}

func (t *memTx) GetBalanceForUpdate(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error) {
	b, ok := t.state.balances[balanceKey{employeeID, leaveTypeID, year}]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return b, nil
}

func (t *memTx) ListBalancesForYear(ctx context.Context, year int) ([]Balance, error) {
	var out []Balance
	for key, b := range t.state.balances {
		if key.year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].LeaveTypeID < out[j].LeaveTypeID
	})
	return out, nil
}

func (t *memTx) InsertBalance(ctx context.Context, balance *Balance) error {
	key := balanceKey{balance.EmployeeID, balance.LeaveTypeID, balance.Year}
	if _, exists := t.state.balances[key]; exists {
		return ErrConflict
	}
	balance.ID = uuid.NewString()
	balance.Version = 1
	balance.UpdatedAt = t.now()
	t.state.balances[key] = *balance
	return nil
}

func (t *memTx) UpdateBalance(ctx context.Context, balance *Balance) error {
	key := balanceKey{balance.EmployeeID, balance.LeaveTypeID, balance.Year}
	current, ok := t.state.balances[key]
	if !ok || current.Version != balance.Version {
		return ErrConflict
	}
	balance.Version++
	balance.UpdatedAt = t.now()
	t.state.balances[key] = *balance
	return nil
}

func (t *memTx) ClaimAccrual(ctx context.Context, employeeID, leaveTypeID string, year, month int, amount decimal.Decimal) (bool, error) {
	key := ledgerKey{balanceKey{employeeID, leaveTypeID, year}, month}
	if _, exists := t.state.ledger[key]; exists {
		return false, nil
	}
	t.state.ledger[key] = amount
	return true, nil
}
