package sync

import (
	"encoding/json"
	"fmt"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/remote"
)

// Mapper translates one collection's local records into remote rows.
// Map strips purely local bookkeeping (sync_status, local auto-ids)
// and renames fields to the remote column names while preserving
// created_at for audit continuity.
type Mapper struct {
	Table       string
	ConflictKey string
	Map         func(raw json.RawMessage) (remote.Row, error)
}

// Registry dispatches collections to their mappers. Adding a syncable
// collection is a one-entry registration here plus its place in
// pos.SyncableCollections.
type Registry map[pos.Collection]Mapper

// NewRegistry builds the mapper set for one store. The store id is
// baked in because the remote schema keys per-store rows on it while
// local product records carry no store column.
func NewRegistry(storeID string) Registry {
	return Registry{
		// The product mirror is remote-authoritative; the only local
		// mutation is the checkout stock decrement, so products upload
		// as stock updates against the per-store inventory table.
		pos.Products: {
			Table:       "inventory",
			ConflictKey: "product_id,store_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var p pos.Product
				if err := decode(raw, &p); err != nil {
					return nil, err
				}
				return remote.Row{
					"product_id": p.ID,
					"store_id":   storeID,
					"stock":      p.StockQuantity,
					"updated_at": p.LastModified,
				}, nil
			},
		},
		pos.Inventory: {
			Table:       "inventory",
			ConflictKey: "product_id,store_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var inv pos.InventoryRecord
				if err := decode(raw, &inv); err != nil {
					return nil, err
				}
				return remote.Row{
					"product_id":                 inv.ProductID,
					"store_id":                   inv.StoreID,
					"stock":                      inv.Stock,
					"min_stock":                  inv.MinStock,
					"max_stock":                  inv.MaxStock,
					"custom_selling_price_cents": inv.CustomSellingPriceCents,
					"custom_cost_price_cents":    inv.CustomCostPriceCents,
					"is_active":                  inv.IsActive,
					"created_at":                 inv.CreatedAt,
					"updated_at":                 inv.LastModified,
				}, nil
			},
		},
		pos.Sales: {
			Table:       "sales",
			ConflictKey: "transaction_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var s pos.Sale
				if err := decode(raw, &s); err != nil {
					return nil, err
				}
				return remote.Row{
					"transaction_id": s.TransactionID,
					"store_id":       s.StoreID,
					"user_id":        s.UserID,
					"total_cents":    s.TotalCents,
					"tax_cents":      s.TaxCents,
					"discount_cents": s.DiscountCents,
					"net_cents":      s.NetCents,
					"payment_method": s.PaymentMethod,
					"status":         s.Status,
					"notes":          s.Notes,
					"created_at":     s.CreatedAt,
				}, nil
			},
		},
		// Items reference their sale by transaction id, not local id,
		// so the remote join works without an id translation table.
		pos.SaleItems: {
			Table:       "sale_items",
			ConflictKey: "sale_transaction_id,product_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var it pos.SaleItem
				if err := decode(raw, &it); err != nil {
					return nil, err
				}
				return remote.Row{
					"sale_transaction_id": it.SaleTransactionID,
					"product_id":          it.ProductID,
					"product_sku":         it.ProductSKU,
					"product_name":        it.ProductName,
					"quantity":            it.Quantity,
					"unit_price_cents":    it.UnitPriceCents,
					"total_price_cents":   it.TotalPriceCents,
					"created_at":          it.CreatedAt,
				}, nil
			},
		},
		pos.Transfers: {
			Table:       "transfers",
			ConflictKey: "client_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var t pos.Transfer
				if err := decode(raw, &t); err != nil {
					return nil, err
				}
				return remote.Row{
					"client_id":     t.ID,
					"product_id":    t.ProductID,
					"from_store_id": t.FromStoreID,
					"to_store_id":   t.ToStoreID,
					"quantity":      t.Quantity,
					"status":        t.Status,
					"created_at":    t.CreatedAt,
				}, nil
			},
		},
		pos.Consumptions: {
			Table:       "consumptions",
			ConflictKey: "client_id",
			Map: func(raw json.RawMessage) (remote.Row, error) {
				var c pos.Consumption
				if err := decode(raw, &c); err != nil {
					return nil, err
				}
				return remote.Row{
					"client_id":  c.ID,
					"product_id": c.ProductID,
					"store_id":   c.StoreID,
					"quantity":   c.Quantity,
					"reason":     c.Reason,
					"created_at": c.CreatedAt,
				}, nil
			},
		},
	}
}

// MapBatch maps a whole pending batch, failing fast on the first bad
// record: a malformed body means a local bug, not a transient fault.
func (m Mapper) MapBatch(records []json.RawMessage) ([]remote.Row, error) {
	rows := make([]remote.Row, 0, len(records))
	for i, raw := range records {
		row, err := m.Map(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode local record: %w", err)
	}
	return nil
}
