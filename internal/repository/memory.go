package repository

import (
	"context"
	"sync"
	"time"

	"staysync/internal/models"
)

type MemoryStatusRepository struct {
	mu         sync.RWMutex
	status     *models.SyncStatus
	rateLimits sync.Map
}

func NewMemoryStatusRepository() *MemoryStatusRepository {
	return &MemoryStatusRepository{}
}

func (r *MemoryStatusRepository) SaveStatus(_ context.Context, status *models.SyncStatus) error {
	cp := *status
	r.mu.Lock()
	r.status = &cp
	r.mu.Unlock()
	return nil
}

func (r *MemoryStatusRepository) LastStatus(context.Context) (*models.SyncStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.status == nil {
		return nil, nil
	}
	cp := *r.status
	return &cp, nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStatusRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{expiresAt: now.Add(window)})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if now.After(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++
	return entry.count <= limit, nil
}
