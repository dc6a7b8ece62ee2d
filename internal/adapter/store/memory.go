package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/arturoeanton/code-atlas/internal/port"
	lru "github.com/hashicorp/golang-lru/v2"
)

const maxMemoryAuditLogs = 1000

// MemoryStore keeps recent analyses in an LRU cache and audit logs in a
// bounded slice. It is used when no database is configured.
type MemoryStore struct {
	analyses *lru.Cache[string, domain.Analysis]

	mu     sync.RWMutex
	logs   []domain.AuditLog
	nextID int64
	state  map[string][]byte
}

// NewMemoryStore creates a store holding at most size analyses.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, domain.Analysis](size)
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}
	return &MemoryStore{
		analyses: cache,
		state:    make(map[string][]byte),
	}, nil
}

// SaveAnalysis stores a copy of a.
func (m *MemoryStore) SaveAnalysis(_ context.Context, a *domain.Analysis) error {
	m.analyses.Add(a.ID, *a)
	return nil
}

// GetAnalysis returns a stored analysis or port.ErrAnalysisNotFound.
// Reads do not refresh recency, so the cache evicts the oldest saved.
func (m *MemoryStore) GetAnalysis(_ context.Context, id string) (*domain.Analysis, error) {
	a, ok := m.analyses.Peek(id)
	if !ok {
		return nil, port.ErrAnalysisNotFound
	}
	return &a, nil
}

// ListAnalyses returns up to limit analyses, newest first.
func (m *MemoryStore) ListAnalyses(_ context.Context, limit int) ([]domain.Analysis, error) {
	// Keys() is ordered oldest to newest.
	keys := m.analyses.Keys()
	out := []domain.Analysis{}
	for i := len(keys) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if a, ok := m.analyses.Peek(keys[i]); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// WriteAudit appends an audit record, dropping the oldest past the cap.
func (m *MemoryStore) WriteAudit(action, resource, resourceID, details, ip, userAgent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.logs = append(m.logs, domain.AuditLog{
		ID:         strconv.FormatInt(m.nextID, 10),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	})
	if len(m.logs) > maxMemoryAuditLogs {
		m.logs = m.logs[len(m.logs)-maxMemoryAuditLogs:]
	}
	return nil
}

// ListAuditLogs returns recent audit logs, newest first.
func (m *MemoryStore) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.AuditLog{}
	for i := len(m.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if action != "" && m.logs[i].Action != action {
			continue
		}
		out = append(out, m.logs[i])
	}
	return out, nil
}

// SaveState stores a copy of data under key.
func (m *MemoryStore) SaveState(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = append([]byte(nil), data...)
	return nil
}

// LoadState returns the data stored under key or port.ErrStateNotFound.
func (m *MemoryStore) LoadState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.state[key]
	if !ok {
		return nil, port.ErrStateNotFound
	}
	return append([]byte(nil), data...), nil
}
