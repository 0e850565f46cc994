package domain

import "time"

// MenuItem is a dish or drink offered by the restaurant. PriceCents is øre.
type MenuItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      int64     `json:"price"`
	Category        string    `json:"category"`
	Tags            []string  `json:"tags"`
	Image           string    `json:"image,omitempty"`
	IsAvailable     bool      `json:"isAvailable"`
	IsPopular       bool      `json:"isPopular"`
	IsVegetarian    bool      `json:"isVegetarian"`
	SpiceLevel      int       `json:"spiceLevel"`
	PreparationTime int       `json:"preparationTime"`
	CreatedAt       time.Time `json:"createdAt"`
}

// MenuFilter narrows menu listings. Empty fields do not filter.
type MenuFilter struct {
	Category string
	Tag      string
	Search   string
}
