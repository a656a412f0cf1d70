package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/pricing"
	"github.com/tillsync/tillsync/internal/remote"
	"github.com/tillsync/tillsync/internal/store"
)

// RefreshCatalog pulls the active product catalog and this store's
// inventory rows, resolves effective prices and stock, and replaces
// the local product and inventory mirrors wholesale in one
// transaction. The mirrors are caches of authoritative remote state,
// so clobbering is correct; sales and cart data are never touched.
func (e *Engine) RefreshCatalog(ctx context.Context) error {
	var productRows, inventoryRows []remote.Row

	err := e.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := e.rem.Select(ctx, "products", remote.Filter{"is_active": "eq.true"})
		if err != nil {
			return err
		}
		productRows = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}

	err = e.retry.Do(ctx, func(ctx context.Context) error {
		rows, err := e.rem.Select(ctx, "inventory", remote.Filter{"store_id": "eq." + e.storeID})
		if err != nil {
			return err
		}
		inventoryRows = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch inventory: %w", err)
	}

	products, err := decodeRows[pos.Product](productRows)
	if err != nil {
		return fmt.Errorf("decode products: %w", err)
	}
	inventory, err := decodeRows[pos.InventoryRecord](inventoryRows)
	if err != nil {
		return fmt.Errorf("decode inventory: %w", err)
	}

	byProduct := make(map[string]*pos.InventoryRecord, len(inventory))
	for i := range inventory {
		byProduct[inventory[i].ProductID] = &inventory[i]
	}

	mirrors := make([]pos.Record, 0, len(products))
	for i := range products {
		p := products[i]
		inv := byProduct[p.ID]
		eff := pricing.Resolve(p, inv)

		p.PriceCents = eff.PriceCents
		p.CostCents = eff.CostCents
		p.StockQuantity = eff.StoreStock
		p.IsActive = eff.Available
		if inv != nil {
			p.MinStockLevel = inv.MinStock
		}
		p.SyncStatus = pos.StatusSynced
		mirrors = append(mirrors, &p)
	}

	invMirrors := make([]pos.Record, 0, len(inventory))
	for i := range inventory {
		inv := inventory[i]
		if inv.ID == "" {
			// Remote inventory is keyed on (product_id, store_id); give
			// the local mirror a stable document id on the same key.
			inv.ID = inv.ProductID + ":" + inv.StoreID
		}
		inv.SyncStatus = pos.StatusSynced
		invMirrors = append(invMirrors, &inv)
	}

	err = e.st.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.Replace(ctx, pos.Products, mirrors); err != nil {
			return err
		}
		return tx.Replace(ctx, pos.Inventory, invMirrors)
	})
	if err != nil {
		return fmt.Errorf("replace catalog mirrors: %w", err)
	}

	slog.Info("catalog refreshed",
		"products", len(mirrors), "inventory_rows", len(invMirrors))
	return nil
}

// decodeRows round-trips remote rows through JSON into typed records.
// The remote column names match the local JSON tags on purpose.
func decodeRows[T any](rows []remote.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
