package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartAddRemove(t *testing.T) {
	c := NewCart()
	c.Add(3)
	c.Add(3)
	c.Add(7)
	assert.Equal(t, 2, c.Quantity(3))
	assert.Equal(t, 1, c.Quantity(7))

	c.Remove(3)
	assert.Equal(t, 1, c.Quantity(3))

	// removing the last unit deletes the entry entirely
	c.Remove(7)
	assert.Equal(t, 0, c.Quantity(7))
	assert.Equal(t, map[int]int{3: 1}, c.Items())

	// removing an absent code is a no-op
	c.Remove(42)
	assert.Equal(t, map[int]int{3: 1}, c.Items())
}

func TestCartFlattenSortedRepetition(t *testing.T) {
	c := NewCart()
	c.Add(9)
	c.Add(2)
	c.Add(9)
	c.Add(2)
	c.Add(2)
	assert.Equal(t, []int{2, 2, 2, 9, 9}, c.Flatten())
}

func TestCartItemsReturnsCopy(t *testing.T) {
	c := NewCart()
	c.Add(1)
	items := c.Items()
	items[1] = 99
	assert.Equal(t, 1, c.Quantity(1))
}

func TestCartTotalCents(t *testing.T) {
	cat := NewCatalog()
	cat.Refresh(map[int]Product{
		3: {Name: "Soda", PriceCents: 2500},
		7: {Name: "Water", PriceCents: 1000},
	})

	c := NewCart()
	c.Add(3)
	c.Add(3)
	c.Add(7)
	c.Add(50) // unmapped code prices at the zero placeholder
	assert.Equal(t, 6000, c.TotalCents(cat))
}

func TestCartClear(t *testing.T) {
	c := NewCart()
	c.Add(1)
	c.Add(2)
	c.Clear()
	assert.True(t, c.Empty())
}
