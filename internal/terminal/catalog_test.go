package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogLookupPlaceholder(t *testing.T) {
	cat := NewCatalog()
	p := cat.Lookup(42)
	assert.Equal(t, "Product 42", p.Name)
	assert.Equal(t, 0, p.PriceCents)
}

func TestCatalogRefreshWholesale(t *testing.T) {
	cat := NewCatalog()
	cat.Refresh(map[int]Product{
		1: {Name: "Cola", PriceCents: 1500},
		2: {Name: "Beer", PriceCents: 3000},
	})
	assert.Equal(t, "Beer", cat.Lookup(2).Name)

	// a new snapshot replaces everything; entries absent from it are gone
	cat.Refresh(map[int]Product{
		1: {Name: "Cola", PriceCents: 1600},
	})
	assert.Equal(t, 1600, cat.Lookup(1).PriceCents)
	assert.Equal(t, "Product 2", cat.Lookup(2).Name)
}

func TestCatalogRefreshDropsOutOfRangeCodes(t *testing.T) {
	cat := NewCatalog()
	cat.Refresh(map[int]Product{
		0:   {Name: "below"},
		101: {Name: "above"},
		100: {Name: "edge", PriceCents: 500},
	})
	assert.Equal(t, "Product 0", cat.Lookup(0).Name)
	assert.Equal(t, "Product 101", cat.Lookup(101).Name)
	assert.Equal(t, "edge", cat.Lookup(100).Name)
}
