package service

import (
	"context"
	"time"

	"staysync/internal/clock"
	"staysync/internal/domain"
	"staysync/internal/models"
)

type StatsService struct {
	stats domain.StatsStore
	clock clock.Clock
}

func NewStatsService(stats domain.StatsStore, c clock.Clock) *StatsService {
	if c == nil {
		c = clock.NewSystem()
	}
	return &StatsService{stats: stats, clock: c}
}

func (s *StatsService) Month(ctx context.Context, propertyID int64, year int, month time.Month) (models.MonthStats, error) {
	return s.stats.MonthStats(ctx, propertyID, year, month)
}

func (s *StatsService) Year(ctx context.Context, propertyID int64, year int) ([]models.MonthStats, error) {
	return s.stats.YearStats(ctx, propertyID, year)
}

// Upcoming returns the next check-ins and check-outs from today on.
func (s *StatsService) Upcoming(ctx context.Context, propertyID int64, limit int) ([]models.Movement, error) {
	if limit <= 0 {
		limit = models.UpcomingMovementsLimit
	}
	return s.stats.UpcomingMovements(ctx, propertyID, models.Day(s.clock.Now()), limit)
}
