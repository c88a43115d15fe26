package ledger

import (
	"context"

	"github.com/google/uuid"
)

// ProductInfo is the slice of catalog data the ledger cares about
type ProductInfo struct {
	ID     uuid.UUID
	SKU    string
	Name   string
	Active bool
}

// CatalogLookup answers whether a product exists in the catalog. The ledger
// consults it only when no stock record exists for a product, to distinguish
// "unknown product" from "known product with nothing available".
type CatalogLookup interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductInfo, error)
}
