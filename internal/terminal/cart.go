package terminal

import (
	"sort"
	"sync"
)

// Cart accumulates the in-progress selection for the current session.
// Membership implies nothing about authentication; gating happens in the
// Terminal so the cart itself stays a plain accumulator. Quantities are
// always positive — removing the last unit deletes the entry.
type Cart struct {
	mu    sync.Mutex
	items map[int]int
}

func NewCart() *Cart {
	return &Cart{items: map[int]int{}}
}

func (c *Cart) Add(code int) {
	c.mu.Lock()
	c.items[code]++
	c.mu.Unlock()
}

func (c *Cart) Remove(code int) {
	c.mu.Lock()
	if qty, ok := c.items[code]; ok {
		if qty <= 1 {
			delete(c.items, code)
		} else {
			c.items[code] = qty - 1
		}
	}
	c.mu.Unlock()
}

func (c *Cart) Quantity(code int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[code]
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = map[int]int{}
	c.mu.Unlock()
}

// Items returns a copy; callers never see the live map.
func (c *Cart) Items() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]int, len(c.items))
	for code, qty := range c.items {
		out[code] = qty
	}
	return out
}

// Flatten expands quantity N into N repetitions of the code, ascending by
// code so the request body is deterministic.
func (c *Cart) Flatten() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	codes := make([]int, 0, len(c.items))
	for code := range c.items {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	out := make([]int, 0, len(codes))
	for _, code := range codes {
		for i := 0; i < c.items[code]; i++ {
			out = append(out, code)
		}
	}
	return out
}

// TotalCents sums price*qty over catalog lookups; unknown codes price at the
// placeholder 0.
func (c *Cart) TotalCents(cat *Catalog) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for code, qty := range c.items {
		total += cat.Lookup(code).PriceCents * qty
	}
	return total
}
