package catalog

import (
	"strings"

	"bytron/internal/config"
)

// Product is a sellable catalog entry: a fiat price and the artifact served
// after payment.
type Product struct {
	ID       string
	PriceUSD int64
	File     string
}

type Catalog struct {
	products map[string]Product
}

func New(products map[string]config.Product) *Catalog {
	m := make(map[string]Product, len(products))
	for id, p := range products {
		key := normalize(id)
		m[key] = Product{ID: key, PriceUSD: p.PriceUSD, File: p.File}
	}
	return &Catalog{products: m}
}

func (c *Catalog) Lookup(productID string) (Product, bool) {
	p, ok := c.products[normalize(productID)]
	return p, ok
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
