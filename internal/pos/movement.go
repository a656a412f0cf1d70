package pos

// Transfer records stock moved between stores. Written by UI features
// through the same sync metadata convention as sales; the local id is
// the upload idempotency key.
type Transfer struct {
	SyncMeta
	ProductID   string  `json:"product_id" validate:"required"`
	FromStoreID string  `json:"from_store_id"`
	ToStoreID   string  `json:"to_store_id" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Status      string  `json:"status"`
}

// Consumption records stock consumed outside a sale (waste, internal
// use, samples).
type Consumption struct {
	SyncMeta
	ProductID string  `json:"product_id" validate:"required"`
	StoreID   string  `json:"store_id"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	Reason    string  `json:"reason"`
}
