package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/eltafawook-admin/internal/catalog"
	"github.com/angelmondragon/eltafawook-admin/internal/inventory"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/money"
)

// Line is one item in the cart.
type Line struct {
	ItemID         string `json:"item_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name,omitempty"`
	TeacherID      string `json:"teacher_id,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// TotalCents is the line total.
func (l Line) TotalCents() int64 {
	return money.Total(l.UnitPriceCents, l.Qty)
}

type availabilityGate interface {
	Gate(ctx context.Context, item catalog.Item, qty int) inventory.Decision
}

// Cart is the operator's ephemeral multi-item order. Lines keep insertion
// order; adding an item already in the cart raises its quantity.
type Cart struct {
	mu    sync.Mutex
	gate  availabilityGate
	lines []Line
}

func New(gate availabilityGate) *Cart {
	return &Cart{gate: gate}
}

// Add puts qty of item in the cart. unitPriceCents <= 0 uses the item's
// default price. The availability gate sees the resulting line quantity.
func (c *Cart) Add(ctx context.Context, item catalog.Item, qty int, unitPriceCents int64) (Line, error) {
	if item.ID == "" {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "item is required")
	}
	if qty <= 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if unitPriceCents <= 0 {
		unitPriceCents = item.DefaultPriceCents
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, l := range c.lines {
		if l.ItemID == item.ID {
			idx = i
			break
		}
	}
	want := qty
	if idx >= 0 {
		want += c.lines[idx].Qty
	}

	if c.gate != nil {
		if d := c.gate.Gate(ctx, item, want); !d.Allowed {
			return Line{}, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("only %d available", d.Available)).
				WithTitle("Not enough stock").
				WithDetails(d)
		}
	}

	if idx >= 0 {
		c.lines[idx].Qty = want
		c.lines[idx].UnitPriceCents = unitPriceCents
		return c.lines[idx], nil
	}
	line := Line{
		ItemID:         item.ID,
		SKU:            item.SKU,
		Name:           item.Name,
		TeacherID:      item.TeacherID,
		Qty:            qty,
		UnitPriceCents: unitPriceCents,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// Remove drops the line of itemID; it reports whether one existed.
func (c *Cart) Remove(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.lines {
		if l.ItemID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Settle takes purchased lines out of the cart. Quantities added to a line
// after it was submitted stay behind.
func (c *Cart) Settle(done []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range done {
		for i, l := range c.lines {
			if l.ItemID != d.ItemID {
				continue
			}
			if l.Qty > d.Qty {
				c.lines[i].Qty = l.Qty - d.Qty
			} else {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
			}
			break
		}
	}
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

func (c *Cart) TotalCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.TotalCents()
	}
	return total
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) Reset() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}
