package pos

// Product is the local mirror of one catalog entry. The mirror is a
// cache of authoritative remote state: a catalog refresh overwrites it
// wholesale, and the only local mutation is the stock decrement a
// checkout applies.
type Product struct {
	SyncMeta
	SKU           string  `json:"sku" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	PriceCents    int64   `json:"price_cents" validate:"gte=0"`
	CostCents     int64   `json:"cost_cents" validate:"gte=0"`
	StockQuantity float64 `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel float64 `json:"min_stock_level" validate:"gte=0"`
	IsActive      bool    `json:"is_active"`

	// IsWeighted products sell by continuous weight; the cart replaces
	// rather than accumulates their quantity on repeated adds.
	IsWeighted bool `json:"is_weighted"`
}

// InventoryRecord is a per-store override row relating one product to
// one store. Custom prices layer over the product defaults: a nil
// pointer means "use the catalog default", while a pointer to zero is
// a genuine zero-price override.
type InventoryRecord struct {
	SyncMeta
	ProductID string  `json:"product_id" validate:"required"`
	StoreID   string  `json:"store_id" validate:"required"`
	Stock     float64 `json:"stock" validate:"gte=0"`
	MinStock  float64 `json:"min_stock" validate:"gte=0"`
	MaxStock  float64 `json:"max_stock" validate:"gte=0"`

	CustomSellingPriceCents *int64 `json:"custom_selling_price_cents"`
	CustomCostPriceCents    *int64 `json:"custom_cost_price_cents"`

	// IsActive is the store-level availability toggle, independent of
	// the global catalog flag.
	IsActive bool `json:"is_active"`
}
