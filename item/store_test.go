package item

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
)

// fakeLister ignores criteria and returns its records.
type fakeLister[T any] struct {
	records []T
	calls   int
	err     error
}

func (f *fakeLister[T]) List(_ context.Context, _ ...repository.SelectCriteria) ([]T, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, len(f.records), nil
}

func staticLister[T any](records ...T) *fakeLister[T] {
	return &fakeLister[T]{records: records}
}

type testStore struct {
	store    *Store
	products *fakeLister[*catalog.Product]
	offers   *fakeLister[*catalog.Offer]
	brands   *fakeLister[*catalog.Brand]
	cats     *fakeLister[*catalog.Category]
}

func newTestStore(t *testing.T, settings catalog.Settings) *testStore {
	t.Helper()
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	ts := &testStore{
		products: staticLister[*catalog.Product](),
		offers:   staticLister[*catalog.Offer](),
		brands:   staticLister[*catalog.Brand](),
		cats:     staticLister[*catalog.Category](),
	}
	ts.store = NewStore(Config{
		Products:   ts.products,
		Offers:     ts.offers,
		Brands:     ts.brands,
		Categories: ts.cats,
		Cache:      svc,
		Settings:   settings,
	})
	return ts
}

func product(active bool) *catalog.Product {
	return &catalog.Product{ID: catalog.NewID(), Name: "Drill", Slug: "drill", Active: active}
}

func activeOffer(productID uuid.UUID, price string) *catalog.Offer {
	return &catalog.Offer{
		ID:        catalog.NewID(),
		ProductID: productID,
		Active:    true,
		Price:     decimal.RequireFromString(price),
		OldPrice:  decimal.RequireFromString(price).Add(decimal.NewFromInt(1)),
	}
}

func TestProductIsMemoized(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t, nil)
	p := product(true)
	ts.products = staticLister(p)
	ts.store.products = ts.products

	for i := 0; i < 3; i++ {
		it, err := ts.store.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Drill", it.Name)
	}
	assert.Equal(t, 1, ts.products.calls)

	require.NoError(t, ts.store.Evict(ctx, catalog.EntityProduct, p.ID))
	_, err := ts.store.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.products.calls)
}

func TestProductPriceFromCheapestActiveOffer(t *testing.T) {
	p := product(true)
	expensive := activeOffer(p.ID, "30.00")
	cheap := activeOffer(p.ID, "12.5")

	it := newProductItem(p, []*catalog.Offer{expensive, cheap})
	assert.Equal(t, "12.50", it.Price)
	assert.Equal(t, "13.50", it.OldPrice)
	assert.True(t, cheap.Price.Equal(it.PriceValue))
	assert.Equal(t, []uuid.UUID{expensive.ID, cheap.ID}, it.OfferIDs)
}

func TestProductEmptyCases(t *testing.T) {
	ctx := context.Background()

	t.Run("nil id", func(t *testing.T) {
		ts := newTestStore(t, nil)
		it, err := ts.store.Product(ctx, uuid.Nil)
		require.NoError(t, err)
		assert.True(t, it.IsEmpty())
		assert.Zero(t, ts.products.calls)
	})

	t.Run("missing", func(t *testing.T) {
		ts := newTestStore(t, nil)
		it, err := ts.store.Product(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, it.IsEmpty())
	})

	t.Run("inactive", func(t *testing.T) {
		ts := newTestStore(t, nil)
		p := product(false)
		ts.store.products = staticLister(p)
		it, err := ts.store.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, it.IsEmpty())
	})

	t.Run("no active offer with check", func(t *testing.T) {
		ts := newTestStore(t, catalog.StaticSettings{OfferActiveCheck: true})
		p := product(true)
		ts.store.products = staticLister(p)
		it, err := ts.store.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, it.IsEmpty())
	})

	t.Run("no active offer without check", func(t *testing.T) {
		ts := newTestStore(t, catalog.StaticSettings{})
		p := product(true)
		ts.store.products = staticLister(p)
		it, err := ts.store.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, it.IsEmpty())
		assert.Empty(t, it.Price)
	})
}

func TestStoreErrorsPropagateAndAreNotCached(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t, nil)
	boom := errors.New("connection refused")
	failing := &fakeLister[*catalog.Brand]{err: boom}
	ts.store.brands = failing

	it, err := ts.store.Brand(ctx, uuid.New())
	assert.Nil(t, it)
	assert.ErrorIs(t, err, boom)

	id := uuid.New()
	_, _ = ts.store.Brand(ctx, id)
	_, _ = ts.store.Brand(ctx, id)
	assert.Equal(t, 3, failing.calls)
}

func TestGetDispatchesByEntity(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t, nil)
	b := &catalog.Brand{ID: catalog.NewID(), Name: "Acme", Active: true}
	ts.store.brands = staticLister(b)

	got, err := ts.store.Get(ctx, catalog.EntityBrand, b.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EntityBrand, got.Entity())
	assert.Equal(t, b.ID, got.GetID())

	_, err = ts.store.Get(ctx, catalog.EntitySettings, b.ID)
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
}

func TestEvictAllDropsOnlyThatEntity(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t, nil)
	b := &catalog.Brand{ID: catalog.NewID(), Name: "Acme", Active: true}
	c := &catalog.Category{ID: catalog.NewID(), Name: "Tools", Active: true}
	brands, cats := staticLister(b), staticLister(c)
	ts.store.brands, ts.store.categories = brands, cats

	_, err := ts.store.Brand(ctx, b.ID)
	require.NoError(t, err)
	_, err = ts.store.Category(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, ts.store.EvictAll(ctx, catalog.EntityBrand))

	_, err = ts.store.Brand(ctx, b.ID)
	require.NoError(t, err)
	_, err = ts.store.Category(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, brands.calls)
	assert.Equal(t, 1, cats.calls)
}

func TestNilItemsAreEmpty(t *testing.T) {
	var p *ProductItem
	var o *OfferItem
	var b *BrandItem
	var c *CategoryItem

	for _, it := range []Item{p, o, b, c} {
		assert.True(t, it.IsEmpty())
		assert.Equal(t, uuid.Nil, it.GetID())
	}
}
