// Package extras holds the fixed list of add-ons offered at checkout.
package extras

// Extra is an optional add-on. PriceCents is øre.
type Extra struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
}

// Catalog is an immutable set of extras keyed by id.
type Catalog struct {
	order []string
	byID  map[string]Extra
}

// NewCatalog builds a Catalog. Later duplicates of an id replace earlier ones.
func NewCatalog(items []Extra) *Catalog {
	c := &Catalog{byID: make(map[string]Extra, len(items))}
	for _, it := range items {
		if _, seen := c.byID[it.ID]; !seen {
			c.order = append(c.order, it.ID)
		}
		c.byID[it.ID] = it
	}
	return c
}

// Lookup returns the extra with the given id.
func (c *Catalog) Lookup(id string) (Extra, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Position is the index of id in catalog order, or the catalog length when absent.
func (c *Catalog) Position(id string) int {
	for i, known := range c.order {
		if known == id {
			return i
		}
	}
	return len(c.order)
}

// All returns extras in catalog order.
func (c *Catalog) All() []Extra {
	out := make([]Extra, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Default is the restaurant's current add-on list.
func Default() *Catalog {
	return NewCatalog([]Extra{
		{ID: "extra-chicken", Name: "Extra Chicken", PriceCents: 5500},
		{ID: "ekstra-ris", Name: "Ekstra Ris", PriceCents: 3900},
		{ID: "mango-chutney", Name: "Mango chutney", PriceCents: 2500},
		{ID: "achar", Name: "Achar", PriceCents: 2500},
		{ID: "mint-raita-small", Name: "Små mint raita", PriceCents: 2000},
		{ID: "papaddum", Name: "Papaddum med tilbehør", PriceCents: 3500},
		{ID: "tandoori-saus", Name: "Ekstra tandoori saus", PriceCents: 4500},
		{ID: "mint-chutney", Name: "Mint chutney", PriceCents: 2500},
		{ID: "ekstra-salat", Name: "Ekstra salat", PriceCents: 2500},
		{ID: "garlic-naan", Name: "Garlic Naan", PriceCents: 4500},
		{ID: "plain-naan", Name: "Plain Naan", PriceCents: 3500},
		{ID: "pepsi-max", Name: "Pepsi-Max", PriceCents: 3500},
		{ID: "butter-naan", Name: "Butter Naan", PriceCents: 4900},
		{ID: "pashawari-naan", Name: "Pashawari Naan", PriceCents: 5500},
		{ID: "cola-05l", Name: "Cola 0.5L", PriceCents: 3500},
		{ID: "sprite-05l", Name: "Sprite 0.5L", PriceCents: 3500},
	})
}
