package pricing

import (
	"sync"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

// Catalog is the set of configured prices of one property. Tiers are
// recomputed from scratch on every mutation.
type Catalog struct {
	mu     sync.RWMutex
	prices []decimal.Decimal
	tiers  []Tier
}

func NewCatalog(prices ...decimal.Decimal) *Catalog {
	c := &Catalog{}
	c.prices = dedupe(prices)
	c.tiers = ClassifySeasons(c.prices)
	return c
}

// Add inserts a price; it returns false when the price is already present.
func (c *Catalog) Add(price decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.prices {
		if p.Equal(price) {
			return false
		}
	}
	c.prices = dedupe(append(c.prices, price))
	c.tiers = ClassifySeasons(c.prices)
	return true
}

// Remove deletes a price; it returns false when the price was not present.
func (c *Catalog) Remove(price decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.prices {
		if p.Equal(price) {
			c.prices = append(c.prices[:i:i], c.prices[i+1:]...)
			c.tiers = ClassifySeasons(c.prices)
			return true
		}
	}
	return false
}

// Tiers returns the classification in ascending price order.
func (c *Catalog) Tiers() []Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Tier(nil), c.tiers...)
}

// SeasonOf looks up the tier of a configured price.
func (c *Catalog) SeasonOf(price decimal.Decimal) (models.Season, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.tiers {
		if t.Price.Equal(price) {
			return t.Season, true
		}
	}
	return models.SeasonNone, false
}
