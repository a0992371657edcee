package service

import (
	"context"
	"errors"
	"time"

	"staysync/internal/database"
	"staysync/internal/domain"
	"staysync/internal/events"
	"staysync/internal/models"
	"staysync/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("price must be positive")

// PricingService keeps the configured price catalog of each property and
// assigns prices to date ranges.
type PricingService struct {
	prices   domain.PriceStore
	ledger   domain.Ledger
	eventBus domain.EventPublisher
	trigger  domain.SyncTrigger
	logger   *zerolog.Logger
}

func NewPricingService(prices domain.PriceStore, ledger domain.Ledger, eventBus domain.EventPublisher, trigger domain.SyncTrigger, logger *zerolog.Logger) *PricingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PricingService{
		prices:   prices,
		ledger:   ledger,
		eventBus: eventBus,
		trigger:  trigger,
		logger:   logger,
	}
}

// Catalog returns the configured prices of a property with their seasons.
func (s *PricingService) Catalog(ctx context.Context, propertyID int64) ([]pricing.Tier, error) {
	c, err := s.catalog(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return c.Tiers(), nil
}

// AddPrice configures a price and returns the reclassified catalog.
func (s *PricingService) AddPrice(ctx context.Context, propertyID int64, price decimal.Decimal) ([]pricing.Tier, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	added, err := s.prices.AddPrice(ctx, propertyID, price)
	if err != nil {
		return nil, err
	}
	if !added {
		s.logger.Debug().Int64("property_id", propertyID).Str("price", price.String()).Msg("price already configured")
	}
	return s.Catalog(ctx, propertyID)
}

func (s *PricingService) RemovePrice(ctx context.Context, propertyID int64, price decimal.Decimal) ([]pricing.Tier, error) {
	if err := s.prices.RemovePrice(ctx, propertyID, price); err != nil {
		return nil, err
	}
	return s.Catalog(ctx, propertyID)
}

// ApplyPrice assigns a configured price to [start, endInclusive] with the
// season the catalog gives it.
func (s *PricingService) ApplyPrice(ctx context.Context, propertyID int64, start, endInclusive time.Time, price decimal.Decimal) (models.Season, error) {
	c, err := s.catalog(ctx, propertyID)
	if err != nil {
		return models.SeasonNone, err
	}
	season, ok := c.SeasonOf(price)
	if !ok {
		return models.SeasonNone, database.ErrPriceNotConfigured
	}
	if err := s.AssignPriceRange(ctx, propertyID, start, endInclusive, price, season); err != nil {
		return models.SeasonNone, err
	}
	return season, nil
}

// AssignPriceRange writes price and season as given, without a catalog lookup.
func (s *PricingService) AssignPriceRange(ctx context.Context, propertyID int64, start, endInclusive time.Time, price decimal.Decimal, season models.Season) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	if err := s.ledger.AssignPriceRange(ctx, propertyID, start, endInclusive, price, season); err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := events.PriceRangePayload{
			PropertyID: propertyID,
			Start:      start,
			End:        endInclusive,
			Price:      price.String(),
			Season:     string(season),
		}
		if err := s.eventBus.PublishJSON(events.EventPriceRangeAssigned, payload); err != nil {
			s.logger.Error().Err(err).Int64("property_id", propertyID).Msg("publish event error")
		}
	}
	if s.trigger != nil {
		s.trigger.ForceSync()
	}
	return nil
}

func (s *PricingService) catalog(ctx context.Context, propertyID int64) (*pricing.Catalog, error) {
	prices, err := s.prices.ListPrices(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return pricing.NewCatalog(prices...), nil
}
