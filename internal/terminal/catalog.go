package terminal

import (
	"fmt"
	"sync"
)

// Product code domain is fixed; the host may map any subset of it.
const (
	MinProductCode = 1
	MaxProductCode = 100
)

type Product struct {
	Name       string
	PriceCents int
	Barcode    string
}

// Catalog is a read-only local mirror of the host's product-code table. It is
// replaced wholesale on every host push and never mutated locally.
type Catalog struct {
	mu       sync.RWMutex
	products map[int]Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: map[int]Product{}}
}

// Refresh swaps in a new snapshot. Codes outside the fixed domain are dropped.
func (c *Catalog) Refresh(products map[int]Product) {
	next := make(map[int]Product, len(products))
	for code, p := range products {
		if code < MinProductCode || code > MaxProductCode {
			continue
		}
		next[code] = p
	}
	c.mu.Lock()
	c.products = next
	c.mu.Unlock()
}

// Lookup returns the entry for code, or the zero-priced placeholder when the
// host has no entry for it.
func (c *Catalog) Lookup(code int) Product {
	c.mu.RLock()
	p, ok := c.products[code]
	c.mu.RUnlock()
	if !ok {
		return Product{Name: fmt.Sprintf("Product %d", code)}
	}
	return p
}
