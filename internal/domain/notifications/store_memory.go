package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu     sync.RWMutex
	items  []Notification
	emails map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{emails: map[string]string{}}
}

func (m *MemoryStore) SetEmail(userID, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[userID] = email
}

func (m *MemoryStore) CreateNotification(ctx context.Context, userID, ntype, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) UserEmail(ctx context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emails[userID], nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Notification
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			out = append(out, m.items[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CountNotifications(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.items {
		if n.UserID == userID {
			total++
		}
	}
	return total, nil
}

func (m *MemoryStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].UserID == userID {
			if m.items[i].ReadAt == nil {
				now := time.Now()
				m.items[i].ReadAt = &now
			}
			return nil
		}
	}
	return ErrNotFound
}
