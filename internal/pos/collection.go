package pos

// Collection names a typed object store in the local database.
type Collection string

const (
	Products     Collection = "products"
	Inventory    Collection = "inventory"
	Sales        Collection = "sales"
	SaleItems    Collection = "sale_items"
	Transfers    Collection = "transfers"
	Consumptions Collection = "consumptions"
)

// SyncableCollections returns every collection that participates in
// the upload direction of sync, in upload order. Sales precede sale
// items so the remote store's foreign keys are satisfied within one
// cycle.
func SyncableCollections() []Collection {
	return []Collection{Products, Inventory, Sales, SaleItems, Transfers, Consumptions}
}
