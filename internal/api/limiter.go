package api

import (
	"context"
	"sync"
	"time"

	"staysync/internal/config"
	"staysync/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const quotaWindow = time.Minute

// rateLimiter combines a local token bucket per client with an optional
// per-minute quota kept in the shared status repository.
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	cfg      config.APIRateLimitConfig
	quota    domain.RateLimitStore
	logger   zerolog.Logger
}

func newRateLimiter(cfg config.APIRateLimitConfig, quota domain.RateLimitStore, logger zerolog.Logger) *rateLimiter {
	return &rateLimiter{
		cfg:    cfg,
		quota:  quota,
		logger: logger,
	}
}

func (l *rateLimiter) allow(ctx context.Context, key string) bool {
	if l.cfg.RPS > 0 && !l.getLimiter(key).Allow() {
		return false
	}
	if l.cfg.PerMinute <= 0 || l.quota == nil {
		return true
	}
	ok, err := l.quota.CheckRateLimit(ctx, "api:"+key, l.cfg.PerMinute, quotaWindow)
	if err != nil {
		// квота недоступна, пропускаем запрос
		l.logger.Warn().Err(err).Str("client", key).Msg("rate limit store unavailable")
		return true
	}
	return ok
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
