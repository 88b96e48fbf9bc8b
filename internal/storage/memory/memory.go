package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/run-coach/internal/storage"
	"github.com/google/uuid"
)

// MemoryStorage: in-memory реализация storage.Storage
type MemoryStorage struct {
	mu        sync.RWMutex
	runs      map[string]storage.Run // key: "owner|started_at"
	exchanges []storage.Exchange
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		runs:      make(map[string]storage.Run),
		exchanges: make([]storage.Exchange, 0),
	}
}

func runKey(ownerUserID string, startedAt time.Time) string {
	return ownerUserID + "|" + startedAt.UTC().Format(time.RFC3339Nano)
}

func (m *MemoryStorage) InsertRun(ctx context.Context, run *storage.Run) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	run.OwnerUserID = strings.TrimSpace(run.OwnerUserID)
	key := runKey(run.OwnerUserID, run.StartedAt)
	if _, exists := m.runs[key]; exists {
		return storage.ErrDuplicateRun
	}

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	m.runs[key] = *run
	return nil
}

func (m *MemoryStorage) ListRuns(ctx context.Context, ownerUserID string, from, to time.Time) ([]storage.Run, error) {
	_ = ctx

	ownerUserID = strings.TrimSpace(ownerUserID)

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]storage.Run, 0)
	for _, run := range m.runs {
		if run.OwnerUserID != ownerUserID {
			continue
		}
		if run.StartedAt.Before(from) || !run.StartedAt.Before(to) {
			continue
		}
		result = append(result, run)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func (m *MemoryStorage) InsertExchange(ctx context.Context, exchange *storage.Exchange) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if exchange.ID == uuid.Nil {
		exchange.ID = uuid.New()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}
	exchange.OwnerUserID = strings.TrimSpace(exchange.OwnerUserID)

	m.exchanges = append(m.exchanges, *exchange)
	return nil
}

func (m *MemoryStorage) ListExchanges(ctx context.Context, ownerUserID string, limit int) ([]storage.Exchange, error) {
	_ = ctx

	ownerUserID = strings.TrimSpace(ownerUserID)
	if limit <= 0 {
		limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]storage.Exchange, 0, limit)
	for i := len(m.exchanges) - 1; i >= 0 && len(result) < limit; i-- {
		if m.exchanges[i].OwnerUserID == ownerUserID {
			result = append(result, m.exchanges[i])
		}
	}
	return result, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
