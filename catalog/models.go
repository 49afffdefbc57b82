package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var (
	_ bun.BeforeAppendModelHook = (*Product)(nil)
	_ bun.BeforeAppendModelHook = (*Offer)(nil)
	_ bun.BeforeAppendModelHook = (*Brand)(nil)
	_ bun.BeforeAppendModelHook = (*Category)(nil)
)

// Product is the catalog card. Offers carry price and stock.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull" json:"slug"`
	Code        string    `bun:"code" json:"code"`
	PreviewText string    `bun:"preview_text" json:"preview_text"`
	Description string    `bun:"description" json:"description"`
	Active      bool      `bun:"active,notnull" json:"active"`
	CategoryID  uuid.UUID `bun:"category_id,type:uuid" json:"category_id"`
	BrandID     uuid.UUID `bun:"brand_id,type:uuid" json:"brand_id"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Offer is a purchasable variant (SKU) of a Product.
type Offer struct {
	bun.BaseModel `bun:"table:offers,alias:o"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	ProductID   uuid.UUID       `bun:"product_id,type:uuid,notnull" json:"product_id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Code        string          `bun:"code" json:"code"`
	PreviewText string          `bun:"preview_text" json:"preview_text"`
	Description string          `bun:"description" json:"description"`
	Active      bool            `bun:"active,notnull" json:"active"`
	Price       decimal.Decimal `bun:"price,type:decimal(12,2),notnull" json:"price"`
	OldPrice    decimal.Decimal `bun:"old_price,type:decimal(12,2),notnull" json:"old_price"`
	Quantity    int             `bun:"quantity,notnull" json:"quantity"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// Brand groups products by manufacturer.
type Brand struct {
	bun.BaseModel `bun:"table:brands,alias:b"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull" json:"slug"`
	Code        string    `bun:"code" json:"code"`
	PreviewText string    `bun:"preview_text" json:"preview_text"`
	Description string    `bun:"description" json:"description"`
	Active      bool      `bun:"active,notnull" json:"active"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Category is a node of the category tree. Root categories have a nil ParentID
// and a NestDepth of 0.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Slug        string    `bun:"slug,notnull" json:"slug"`
	Code        string    `bun:"code" json:"code"`
	PreviewText string    `bun:"preview_text" json:"preview_text"`
	Description string    `bun:"description" json:"description"`
	Active      bool      `bun:"active,notnull" json:"active"`
	NestDepth   int       `bun:"nest_depth,notnull" json:"nest_depth"`
	ParentID    uuid.UUID `bun:"parent_id,type:uuid" json:"parent_id"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// NewID returns a time ordered identifier, so identifier order matches creation order.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func (p *Product) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touch(query, &p.ID, &p.CreatedAt, &p.UpdatedAt)
	p.Slug = slugFor(p.Slug, p.Name)
	return nil
}

func (o *Offer) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touch(query, &o.ID, &o.CreatedAt, &o.UpdatedAt)
	return nil
}

func (b *Brand) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touch(query, &b.ID, &b.CreatedAt, &b.UpdatedAt)
	b.Slug = slugFor(b.Slug, b.Name)
	return nil
}

func (c *Category) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	touch(query, &c.ID, &c.CreatedAt, &c.UpdatedAt)
	c.Slug = slugFor(c.Slug, c.Name)
	return nil
}

func touch(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			*id = NewID()
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		*updatedAt = now
	case *bun.UpdateQuery:
		*updatedAt = now
	}
}

func slugFor(current, name string) string {
	if current != "" {
		return current
	}
	return slug.Make(name)
}

// Record is implemented by every catalog model.
type Record interface {
	GetID() uuid.UUID
	SetID(id uuid.UUID)
	// IdentifierColumn names the natural key column used by identifier lookups.
	IdentifierColumn() string
}

var (
	_ Record = (*Product)(nil)
	_ Record = (*Offer)(nil)
	_ Record = (*Brand)(nil)
	_ Record = (*Category)(nil)
)

func (p *Product) GetID() uuid.UUID { return p.ID }
func (p *Product) SetID(id uuid.UUID) { p.ID = id }
func (*Product) IdentifierColumn() string { return "slug" }
func (o *Offer) GetID() uuid.UUID { return o.ID }
func (o *Offer) SetID(id uuid.UUID) { o.ID = id }
func (*Offer) IdentifierColumn() string { return "code" }
func (b *Brand) GetID() uuid.UUID { return b.ID }
func (b *Brand) SetID(id uuid.UUID) { b.ID = id }
func (*Brand) IdentifierColumn() string { return "slug" }
func (c *Category) GetID() uuid.UUID { return c.ID }
func (c *Category) SetID(id uuid.UUID) { c.ID = id }
func (*Category) IdentifierColumn() string { return "slug" }
