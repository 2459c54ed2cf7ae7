package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leavehr/internal/domain/auth"
)

// MemoryStore keeps employees in process. It backs tests and local tooling.
type MemoryStore struct {
	mu        sync.RWMutex
	employees map[string]Employee
	order     []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{employees: map[string]Employee{}}
}

func (m *MemoryStore) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *MemoryStore) GetEmployeeByUserID(ctx context.Context, userID string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if emp := m.employees[id]; emp.UserID != "" && emp.UserID == userID {
			return emp, nil
		}
	}
	return Employee{}, ErrEmployeeNotFound
}

func (m *MemoryStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	return m.filter(func(Employee) bool { return true }), nil
}

func (m *MemoryStore) ListEnrolled(ctx context.Context) ([]Employee, error) {
	out := m.filter(func(e Employee) bool {
		return e.Active && e.FingerprintEnrolled && e.FingerprintTemplate != ""
	})
	sort.SliceStable(out, func(i, j int) bool {
		return enrolledAt(out[i]).Before(enrolledAt(out[j]))
	})
	return out, nil
}

func enrolledAt(e Employee) time.Time {
	if e.EnrollmentDate == nil {
		return time.Time{}
	}
	return *e.EnrollmentDate
}

func (m *MemoryStore) filter(keep func(Employee) bool) []Employee {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, 0, len(m.order))
	for _, id := range m.order {
		if emp := m.employees[id]; keep(emp) {
			out = append(out, emp)
		}
	}
	return out
}

func (m *MemoryStore) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if emp.UserID != "" {
		for _, existing := range m.employees {
			if existing.UserID == emp.UserID {
				return "", ErrDuplicateUser
			}
		}
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if emp.Role == "" {
		emp.Role = auth.RoleEmployee
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now()
	}
	m.employees[emp.ID] = emp
	m.order = append(m.order, emp.ID)
	return emp.ID, nil
}

func (m *MemoryStore) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeID]
	return ok && emp.ManagerID != "" && emp.ManagerID == managerEmployeeID, nil
}

func (m *MemoryStore) ApproverUserIDs(ctx context.Context, employeeID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	managerID := m.employees[employeeID].ManagerID
	seen := map[string]struct{}{}
	for _, emp := range m.employees {
		if emp.UserID == "" || !emp.Active {
			continue
		}
		if emp.ID == managerID || emp.Role == auth.RoleHR || emp.Role == auth.RoleAdmin {
			seen[emp.UserID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) update(employeeID string, fn func(*Employee)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return ErrEmployeeNotFound
	}
	fn(&emp)
	m.employees[employeeID] = emp
	return nil
}

func (m *MemoryStore) EnrollFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return ErrEmployeeNotFound
	}
	if emp.FingerprintEnrolled {
		return ErrAlreadyEnrolled
	}
	emp.FingerprintEnrolled = true
	emp.FingerprintTemplate = template
	at := enrolledAt
	emp.EnrollmentDate = &at
	m.employees[employeeID] = emp
	return nil
}

func (m *MemoryStore) SaveFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error {
	return m.update(employeeID, func(e *Employee) {
		e.FingerprintEnrolled = true
		e.FingerprintTemplate = template
		at := enrolledAt
		e.EnrollmentDate = &at
	})
}

func (m *MemoryStore) ClearFingerprint(ctx context.Context, employeeID string) error {
	return m.update(employeeID, func(e *Employee) {
		e.FingerprintEnrolled = false
		e.FingerprintTemplate = ""
		e.EnrollmentDate = nil
	})
}

func (m *MemoryStore) SetPinHash(ctx context.Context, employeeID, hash string) error {
	return m.update(employeeID, func(e *Employee) { e.PinHash = hash })
}
