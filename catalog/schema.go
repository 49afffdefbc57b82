package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Relation names used in change event refs.
const (
	RefProduct  = "product"
	RefBrand    = "brand"
	RefCategory = "category"
	RefParent   = "parent"
)

// Models lists the bun models owned by the catalog, in creation order.
func Models() []any {
	return []any{
		(*Brand)(nil),
		(*Category)(nil),
		(*Product)(nil),
		(*Offer)(nil),
	}
}

// CreateSchema creates the catalog tables and lookup indexes when missing.
// Production deployments are expected to run real migrations; this is used by
// tests, the example and local tooling.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*Product)(nil), "products_category_id_idx", "category_id"},
		{(*Product)(nil), "products_brand_id_idx", "brand_id"},
		{(*Offer)(nil), "offers_product_id_idx", "product_id"},
		{(*Category)(nil), "categories_parent_id_idx", "parent_id"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// ProductRefs returns the relations of a product carried in change events.
func ProductRefs(p *Product) map[string]uuid.UUID {
	if p == nil {
		return nil
	}
	return map[string]uuid.UUID{RefBrand: p.BrandID, RefCategory: p.CategoryID}
}

// OfferRefs returns the relations of an offer carried in change events.
func OfferRefs(o *Offer) map[string]uuid.UUID {
	if o == nil {
		return nil
	}
	return map[string]uuid.UUID{RefProduct: o.ProductID}
}

// CategoryRefs returns the relations of a category carried in change events.
func CategoryRefs(c *Category) map[string]uuid.UUID {
	if c == nil {
		return nil
	}
	return map[string]uuid.UUID{RefParent: c.ParentID}
}
