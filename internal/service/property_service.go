package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"staysync/internal/domain"
	"staysync/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var ErrPropertyNameRequired = errors.New("property name is required")

type PropertyService struct {
	store  domain.PropertyStore
	prices domain.PriceStore
	logger *zerolog.Logger
}

func NewPropertyService(store domain.PropertyStore, prices domain.PriceStore, logger *zerolog.Logger) *PropertyService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PropertyService{store: store, prices: prices, logger: logger}
}

func (s *PropertyService) Create(ctx context.Context, p *models.Property) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrPropertyNameRequired
	}
	return s.store.CreateProperty(ctx, p)
}

func (s *PropertyService) Get(ctx context.Context, id int64) (*models.Property, error) {
	return s.store.GetProperty(ctx, id)
}

func (s *PropertyService) List(ctx context.Context) ([]*models.Property, error) {
	return s.store.ListProperties(ctx)
}

func (s *PropertyService) Update(ctx context.Context, p *models.Property) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrPropertyNameRequired
	}
	return s.store.UpdateProperty(ctx, p)
}

func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteProperty(ctx, id)
}

// Seed stores the properties listed in the configuration together with their
// configured prices. Existing properties keep their stored fields.
func (s *PropertyService) Seed(ctx context.Context, properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	if err := s.store.SyncProperties(ctx, properties); err != nil {
		return fmt.Errorf("failed to seed properties: %w", err)
	}

	for _, p := range properties {
		for _, raw := range p.Prices {
			price, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("property %d: invalid price %q: %w", p.ID, raw, err)
			}
			added, err := s.prices.AddPrice(ctx, p.ID, price)
			if err != nil {
				return fmt.Errorf("property %d: failed to add price: %w", p.ID, err)
			}
			if added {
				s.logger.Info().Int64("property_id", p.ID).Str("price", price.String()).Msg("Price seeded")
			}
		}
	}
	return nil
}
