// Package pricing resolves the effective sell price, cost, stock, and
// availability of a product by layering per-store inventory overrides
// over the global catalog defaults. Pure functions, no I/O.
package pricing

import "github.com/tillsync/tillsync/internal/pos"

// Effective is the resolved view of a product for one store.
type Effective struct {
	PriceCents int64
	CostCents  int64
	StoreStock float64
	Available  bool
}

// Resolve layers an optional inventory override over the product
// defaults.
//
// A nil override pointer means "use the catalog default" - absent and
// explicit-null serialize to the same nil. A pointer to zero is a
// genuine zero override: a store may sell an item for free without
// that reading as "unset".
//
// Availability is the conjunction of the catalog flag and the
// store-level toggle.
func Resolve(p pos.Product, inv *pos.InventoryRecord) Effective {
	eff := Effective{
		PriceCents: p.PriceCents,
		CostCents:  p.CostCents,
		StoreStock: p.StockQuantity,
		Available:  p.IsActive,
	}
	if inv == nil {
		return eff
	}

	if inv.CustomSellingPriceCents != nil {
		eff.PriceCents = *inv.CustomSellingPriceCents
	}
	if inv.CustomCostPriceCents != nil {
		eff.CostCents = *inv.CustomCostPriceCents
	}
	eff.StoreStock = inv.Stock
	eff.Available = p.IsActive && inv.IsActive
	return eff
}
