// Package cart implements the in-memory cart and checkout state
// machine: line aggregation, totals computation, and the single
// atomic transaction that turns a cart into a persisted sale.
//
// A Cart moves through Empty -> Building -> checkout -> (committed |
// failed). Building is re-entrant; checkout is serialized, and a
// failed checkout leaves the cart intact for retry.
package cart

import (
	"math"
	"sync"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/pricing"
	"github.com/tillsync/tillsync/internal/store"
)

// Line is one cart entry: a product snapshot plus the quantity (or
// current weight reading) being sold. Identity is synthesized per
// add-to-cart event, not the product id.
type Line struct {
	ID        string
	Product   pos.Product
	Quantity  float64
	UnitPrice int64 // cents, effective price at add time
	Subtotal  int64 // cents
	Weighted  bool
}

// Totals is the cart-level money summary.
// Invariant: Total = Subtotal + Tax - Discount, exactly.
type Totals struct {
	Subtotal int64
	Tax      int64
	Discount int64
	Total    int64
}

// Cart aggregates lines and commits them as one sale. Tax rate and
// discount are session-scoped configuration, not per-line.
//
// Thread-safety: all methods lock internally. Interleaved async
// callers (UI events, background sync ticks) never observe a
// half-updated cart, and concurrent checkouts are serialized - the
// second caller finds an empty cart and gets the no-op result.
type Cart struct {
	mu sync.Mutex

	st      *store.Store
	ids     IDGenerator
	storeID string
	userID  string

	taxRate  float64
	discount int64 // cents

	lines []Line
	notes string
}

// Option configures a Cart.
type Option func(*Cart)

// WithTaxRate sets the session tax rate (e.g. 0.19 for 19%).
func WithTaxRate(rate float64) Option {
	return func(c *Cart) { c.taxRate = rate }
}

// WithDiscount sets the session discount in cents.
func WithDiscount(cents int64) Option {
	return func(c *Cart) { c.discount = cents }
}

// WithIDGenerator overrides the transaction id source.
// Tests use FixedGenerator for deterministic ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Cart) { c.ids = g }
}

// WithContext sets the store and user identifiers stamped on sales.
// Both are opaque inputs obtained from the host's auth collaborator.
func WithContext(storeID, userID string) Option {
	return func(c *Cart) {
		c.storeID = storeID
		c.userID = userID
	}
}

// New creates an empty cart bound to a local store.
func New(st *store.Store, opts ...Option) *Cart {
	c := &Cart{
		st:  st,
		ids: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem adds a product to the cart at its effective price and
// returns the line id.
//
// If weight is non-zero the item is weight-based: quantity becomes
// the current scale reading, and a later add of the same product
// replaces the reading rather than accumulating it - a re-weigh
// corrects a measurement, it does not compound it. Discrete products
// accumulate quantity across repeated adds (repeated barcode scans
// merge into one line).
func (c *Cart) AddItem(p pos.Product, eff pricing.Effective, quantity, weight float64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	weighted := weight != 0
	qty := quantity
	if weighted {
		qty = weight
	}

	for i := range c.lines {
		if c.lines[i].Product.ID != p.ID {
			continue
		}
		if weighted {
			c.lines[i].Quantity = qty
		} else {
			c.lines[i].Quantity += qty
		}
		c.lines[i].UnitPrice = eff.PriceCents
		c.lines[i].Subtotal = lineSubtotal(eff.PriceCents, c.lines[i].Quantity)
		return c.lines[i].ID
	}

	line := Line{
		ID:        c.ids.Generate(),
		Product:   p,
		Quantity:  qty,
		UnitPrice: eff.PriceCents,
		Subtotal:  lineSubtotal(eff.PriceCents, qty),
		Weighted:  weighted || p.IsWeighted,
	}
	c.lines = append(c.lines, line)
	return line.ID
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the
// line.
func (c *Cart) UpdateQuantity(lineID string, quantity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID != lineID {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
		c.lines[i].Quantity = quantity
		c.lines[i].Subtotal = lineSubtotal(c.lines[i].UnitPrice, quantity)
		return
	}
}

// RemoveItem removes a line by id. Unknown ids are ignored.
func (c *Cart) RemoveItem(lineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear removes every line and any transient notes.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cart) clearLocked() {
	c.lines = nil
	c.notes = ""
}

// SetNotes attaches transient notes carried onto the next sale.
func (c *Cart) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = notes
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the current line count.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Totals computes the cart summary from current lines.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalsLocked()
}

func (c *Cart) totalsLocked() Totals {
	var subtotal int64
	for _, l := range c.lines {
		subtotal += l.Subtotal
	}
	tax := int64(math.Round(float64(subtotal) * c.taxRate))
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: c.discount,
		Total:    subtotal + tax - c.discount,
	}
}

// lineSubtotal rounds price x quantity to whole cents. Quantity is
// float64 because weighted items sell fractional amounts.
func lineSubtotal(unitPriceCents int64, quantity float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * quantity))
}
