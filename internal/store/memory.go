package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// maxMemoryRecords caps each in-memory collection; the oldest records are
// dropped first.
const maxMemoryRecords = 5000

// Memory is a mutex-guarded in-process Store. Records are kept in insertion
// order, which is also chronological.
type Memory struct {
	mu       sync.RWMutex
	readings []domain.Reading
	alerts   []domain.Alert
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveReading(_ context.Context, r *domain.Reading) error {
	stampReading(r, domain.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, *r)
	if len(m.readings) > maxMemoryRecords {
		m.readings = m.readings[len(m.readings)-maxMemoryRecords:]
	}
	return nil
}

func (m *Memory) ListReadings(_ context.Context, limit int) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Reading, 0, min(limit, len(m.readings)))
	for i := len(m.readings) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.readings[i])
	}
	return out, nil
}

func (m *Memory) LatestReading(_ context.Context) (*domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.readings) == 0 {
		return nil, nil
	}
	r := m.readings[len(m.readings)-1]
	return &r, nil
}

func (m *Memory) SaveAlert(_ context.Context, a *domain.Alert) error {
	stampAlert(a, domain.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *a)
	if len(m.alerts) > maxMemoryRecords {
		m.alerts = m.alerts[len(m.alerts)-maxMemoryRecords:]
	}
	return nil
}

func (m *Memory) ListAlerts(_ context.Context, status domain.AlertStatus, limit int) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Alert, 0)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.alerts[i].Status == status {
			out = append(out, m.alerts[i])
		}
	}
	return out, nil
}

func (m *Memory) ClearAlert(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		if m.alerts[i].Status != domain.StatusCleared {
			m.alerts[i].Status = domain.StatusCleared
			m.alerts[i].UpdatedAt = domain.Now()
		}
		return nil
	}
	return fmt.Errorf("alert %s: %w", id, ErrNotFound)
}

func (m *Memory) ClearActiveAlerts(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := domain.Now()
	cleared := 0
	for i := range m.alerts {
		if m.alerts[i].Status == domain.StatusActive {
			m.alerts[i].Status = domain.StatusCleared
			m.alerts[i].UpdatedAt = now
			cleared++
		}
	}
	return cleared, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
