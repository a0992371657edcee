package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"staysync/internal/domain"
	"staysync/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStatusRepository uses the primary store until it fails, then the
// fallback, retrying the primary once a minute.
type FailoverStatusRepository struct {
	primary  domain.StatusRepository
	fallback domain.StatusRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStatusRepository(primary, fallback domain.StatusRepository, logger *zerolog.Logger) *FailoverStatusRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStatusRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStatusRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary status repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the primary should be tried on this call.
func (r *FailoverStatusRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > time.Minute {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStatusRepository) SaveStatus(ctx context.Context, status *models.SyncStatus) error {
	// Fallback всегда хранит копию, чтобы переключение не теряло статус.
	_ = r.fallback.SaveStatus(ctx, status)

	if r.usePrimary() {
		err := r.primary.SaveStatus(ctx, status)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverStatusRepository) LastStatus(ctx context.Context) (*models.SyncStatus, error) {
	if r.usePrimary() {
		status, err := r.primary.LastStatus(ctx)
		if err == nil {
			r.isDown.Store(false)
			return status, nil
		}
		r.markDown(err)
	}
	return r.fallback.LastStatus(ctx)
}

func (r *FailoverStatusRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
