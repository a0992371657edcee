package models

import "time"

// Property is a single rental unit (VUT); every ledger row belongs to one.
type Property struct {
	ID         int64     `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	URL        string    `yaml:"url" json:"url"`
	CalendarID string    `yaml:"calendar_id" json:"calendar_id,omitempty"`
	Prices     []string  `yaml:"prices" json:"-"`
	CreatedAt  time.Time `yaml:"-" json:"created_at"`
	UpdatedAt  time.Time `yaml:"-" json:"updated_at"`
}
