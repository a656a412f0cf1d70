package pos

// Sale statuses. The local engine models no partial or void states:
// a sale is completed at creation and immutable thereafter except for
// its sync status.
const SaleStatusCompleted = "completed"

// Sale is a checkout transaction persisted locally and uploaded keyed
// on its client-generated TransactionID, which doubles as the
// idempotency key: re-uploading after a partial failure never creates
// a duplicate remote row.
//
// Amount invariant: TotalCents = NetCents + TaxCents - DiscountCents.
type Sale struct {
	SyncMeta
	TransactionID string `json:"transaction_id" validate:"required"`
	StoreID       string `json:"store_id"`
	UserID        string `json:"user_id"`

	TotalCents    int64 `json:"total_cents" validate:"gte=0"`
	TaxCents      int64 `json:"tax_cents" validate:"gte=0"`
	DiscountCents int64 `json:"discount_cents" validate:"gte=0"`
	NetCents      int64 `json:"net_cents" validate:"gte=0"`

	PaymentMethod string `json:"payment_method" validate:"required"`
	Status        string `json:"status" validate:"required"`
	Notes         string `json:"notes"`
}

// SaleItem is one line of a sale. SKU and name are denormalized so
// sales history survives catalog changes. Items are created only
// inside a sale's checkout transaction and never updated afterwards.
type SaleItem struct {
	SyncMeta
	SaleID string `json:"sale_id" validate:"required"`

	// SaleTransactionID carries the parent sale's idempotency key so
	// the upload mapper never needs a local-id lookup.
	SaleTransactionID string `json:"sale_transaction_id" validate:"required"`

	ProductID       string  `json:"product_id" validate:"required"`
	ProductSKU      string  `json:"product_sku"`
	ProductName     string  `json:"product_name"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
	UnitPriceCents  int64   `json:"unit_price_cents" validate:"gte=0"`
	TotalPriceCents int64   `json:"total_price_cents" validate:"gte=0"`
}
