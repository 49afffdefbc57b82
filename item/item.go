package item

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// Item is the common surface of every cached projection.
// Empty items (absent or hidden records) report IsEmpty and zero values.
type Item interface {
	Entity() catalog.Entity
	GetID() uuid.UUID
	IsEmpty() bool
}

var (
	_ Item = (*ProductItem)(nil)
	_ Item = (*OfferItem)(nil)
	_ Item = (*BrandItem)(nil)
	_ Item = (*CategoryItem)(nil)
)

// ProductItem is the read projection of a visible product plus the price of its
// cheapest active offer.
type ProductItem struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Code        string
	PreviewText string
	Description string
	CategoryID  uuid.UUID
	BrandID     uuid.UUID
	// OfferIDs lists active offers in identifier order.
	OfferIDs      []uuid.UUID
	Price         string
	OldPrice      string
	PriceValue    decimal.Decimal
	OldPriceValue decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time

	store *Store
}

func (p *ProductItem) Entity() catalog.Entity { return catalog.EntityProduct }

func (p *ProductItem) GetID() uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return p.ID
}

func (p *ProductItem) IsEmpty() bool {
	return p == nil || p.ID == uuid.Nil
}

// Brand resolves the product brand.
func (p *ProductItem) Brand(ctx context.Context) (*BrandItem, error) {
	if p.IsEmpty() || p.store == nil {
		return &BrandItem{}, nil
	}
	return p.store.Brand(ctx, p.BrandID)
}

// Category resolves the product category.
func (p *ProductItem) Category(ctx context.Context) (*CategoryItem, error) {
	if p.IsEmpty() || p.store == nil {
		return &CategoryItem{}, nil
	}
	return p.store.Category(ctx, p.CategoryID)
}

// Offers resolves the active offers in identifier order.
func (p *ProductItem) Offers(ctx context.Context) ([]*OfferItem, error) {
	if p.IsEmpty() || p.store == nil {
		return nil, nil
	}
	offers := make([]*OfferItem, 0, len(p.OfferIDs))
	for _, id := range p.OfferIDs {
		offer, err := p.store.Offer(ctx, id)
		if err != nil {
			return nil, err
		}
		if !offer.IsEmpty() {
			offers = append(offers, offer)
		}
	}
	return offers, nil
}

func (p *ProductItem) clone(store *Store) *ProductItem {
	cp := *p
	cp.OfferIDs = append([]uuid.UUID(nil), p.OfferIDs...)
	cp.store = store
	return &cp
}

// OfferItem is the read projection of an active offer.
type OfferItem struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Name          string
	Code          string
	PreviewText   string
	Description   string
	Price         string
	OldPrice      string
	PriceValue    decimal.Decimal
	OldPriceValue decimal.Decimal
	Quantity      int
	CreatedAt     time.Time
	UpdatedAt     time.Time

	store *Store
}

func (o *OfferItem) Entity() catalog.Entity { return catalog.EntityOffer }

func (o *OfferItem) GetID() uuid.UUID {
	if o == nil {
		return uuid.Nil
	}
	return o.ID
}

func (o *OfferItem) IsEmpty() bool {
	return o == nil || o.ID == uuid.Nil
}

// Product resolves the owning product. It is empty when the product is hidden.
func (o *OfferItem) Product(ctx context.Context) (*ProductItem, error) {
	if o.IsEmpty() || o.store == nil {
		return &ProductItem{}, nil
	}
	return o.store.Product(ctx, o.ProductID)
}

func (o *OfferItem) clone(store *Store) *OfferItem {
	cp := *o
	cp.store = store
	return &cp
}

// BrandItem is the read projection of an active brand.
type BrandItem struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Code        string
	PreviewText string
	Description string
}

func (b *BrandItem) Entity() catalog.Entity { return catalog.EntityBrand }

func (b *BrandItem) GetID() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.ID
}

func (b *BrandItem) IsEmpty() bool {
	return b == nil || b.ID == uuid.Nil
}

// CategoryItem is the read projection of an active category.
type CategoryItem struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Code        string
	PreviewText string
	Description string
	NestDepth   int
	ParentID    uuid.UUID

	store *Store
}

func (c *CategoryItem) Entity() catalog.Entity { return catalog.EntityCategory }

func (c *CategoryItem) GetID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.ID
}

func (c *CategoryItem) IsEmpty() bool {
	return c == nil || c.ID == uuid.Nil
}

// Parent resolves the parent category; root categories return an empty item.
func (c *CategoryItem) Parent(ctx context.Context) (*CategoryItem, error) {
	if c.IsEmpty() || c.store == nil {
		return &CategoryItem{}, nil
	}
	return c.store.Category(ctx, c.ParentID)
}

func (c *CategoryItem) clone(store *Store) *CategoryItem {
	cp := *c
	cp.store = store
	return &cp
}

func newProductItem(p *catalog.Product, active []*catalog.Offer) *ProductItem {
	it := &ProductItem{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Code:        p.Code,
		PreviewText: p.PreviewText,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		BrandID:     p.BrandID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	var cheapest *catalog.Offer
	for _, offer := range active {
		it.OfferIDs = append(it.OfferIDs, offer.ID)
		if cheapest == nil || offer.Price.LessThan(cheapest.Price) {
			cheapest = offer
		}
	}
	if cheapest != nil {
		it.PriceValue = cheapest.Price
		it.OldPriceValue = cheapest.OldPrice
		it.Price = catalog.FormatPrice(cheapest.Price)
		it.OldPrice = catalog.FormatPrice(cheapest.OldPrice)
	}
	return it
}

func newOfferItem(o *catalog.Offer) *OfferItem {
	return &OfferItem{
		ID:            o.ID,
		ProductID:     o.ProductID,
		Name:          o.Name,
		Code:          o.Code,
		PreviewText:   o.PreviewText,
		Description:   o.Description,
		Price:         catalog.FormatPrice(o.Price),
		OldPrice:      catalog.FormatPrice(o.OldPrice),
		PriceValue:    o.Price,
		OldPriceValue: o.OldPrice,
		Quantity:      o.Quantity,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func newBrandItem(b *catalog.Brand) *BrandItem {
	return &BrandItem{
		ID:          b.ID,
		Name:        b.Name,
		Slug:        b.Slug,
		Code:        b.Code,
		PreviewText: b.PreviewText,
		Description: b.Description,
	}
}

func newCategoryItem(c *catalog.Category) *CategoryItem {
	return &CategoryItem{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Code:        c.Code,
		PreviewText: c.PreviewText,
		Description: c.Description,
		NestDepth:   c.NestDepth,
		ParentID:    c.ParentID,
	}
}
