package collection

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/item"
)

// ProductCollection is an immutable query over product identifiers. Filter
// methods return a new collection; the receiver is never changed, so a base
// collection can be narrowed in several directions.
type ProductCollection struct {
	store *Store

	explicit   bool
	ids        []uuid.UUID
	active     bool
	categories []uuid.UUID
	brands     []uuid.UUID
	sort       Sort
}

// Active keeps products that are active. With the offer check enabled they must
// also have at least one active offer.
func (c ProductCollection) Active() ProductCollection {
	c.active = true
	return c
}

// Category keeps products assigned to categoryID. Repeated calls intersect.
func (c ProductCollection) Category(categoryID uuid.UUID) ProductCollection {
	c.categories = withID(c.categories, categoryID)
	return c
}

// Brand keeps products of brandID. Repeated calls intersect.
func (c ProductCollection) Brand(brandID uuid.UUID) ProductCollection {
	c.brands = withID(c.brands, brandID)
	return c
}

// Sort orders the result. The last call wins. Price modes drop products that
// have no active offer when the offer check is enabled.
func (c ProductCollection) Sort(mode Sort) ProductCollection {
	c.sort = mode
	return c
}

// IDList resolves the collection to product identifiers.
func (c ProductCollection) IDList(ctx context.Context) ([]uuid.UUID, error) {
	return c.store.resolve(ctx, c)
}

// Count returns the number of identifiers in the collection.
func (c ProductCollection) Count(ctx context.Context) (int, error) {
	ids, err := c.IDList(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IsEmpty reports whether the collection resolves to no identifiers.
func (c ProductCollection) IsEmpty(ctx context.Context) (bool, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// First returns the first product that resolves to a non-empty item, or an
// empty item when there is none.
func (c ProductCollection) First(ctx context.Context) (*item.ProductItem, error) {
	ids, err := c.IDList(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		it, err := c.store.items.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		if !it.IsEmpty() {
			return it, nil
		}
	}
	return &item.ProductItem{}, nil
}

// Items resolves every non-empty product item in collection order.
func (c ProductCollection) Items(ctx context.Context) ([]*item.ProductItem, error) {
	ids, err := c.IDList(ctx)
	if err != nil {
		return nil, err
	}
	all, err := c.store.items.Products(ctx, ids)
	if err != nil {
		return nil, err
	}
	visible := make([]*item.ProductItem, 0, len(all))
	for _, it := range all {
		if !it.IsEmpty() {
			visible = append(visible, it)
		}
	}
	return visible, nil
}

// signature is the cache identity of a collection.
type signature struct {
	Explicit         bool
	IDs              []uuid.UUID
	Active           bool
	CheckOfferActive bool
	Categories       []uuid.UUID
	Brands           []uuid.UUID
	Sort             string
}

func (c ProductCollection) signature(checkOfferActive bool) signature {
	return signature{
		Explicit:         c.explicit,
		IDs:              c.ids,
		Active:           c.active,
		CheckOfferActive: checkOfferActive,
		Categories:       c.categories,
		Brands:           c.brands,
		Sort:             string(c.sort),
	}
}

// withID returns a sorted copy of ids including id. Sorting keeps the
// signature independent of filter call order.
func withID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	out := make([]uuid.UUID, 0, len(ids)+1)
	out = append(out, ids...)
	out = append(out, id)
	sortIDs(out, false)
	return out
}
