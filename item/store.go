package item

import (
	"bytes"
	"context"
	"sort"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
)

// Lister is the read capability the item layer needs from a repository.
// repository.Repository[T] satisfies it.
type Lister[T any] interface {
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
}

// Config wires a Store.
type Config struct {
	Products   Lister[*catalog.Product]
	Offers     Lister[*catalog.Offer]
	Brands     Lister[*catalog.Brand]
	Categories Lister[*catalog.Category]

	Cache    cache.CacheService
	Keys     cache.KeySerializer
	Settings catalog.Settings
	Logger   *zap.Logger
}

// Store resolves item projections through the cache. Results are memoized per
// entity and id until the invalidator evicts them.
type Store struct {
	products   Lister[*catalog.Product]
	offers     Lister[*catalog.Offer]
	brands     Lister[*catalog.Brand]
	categories Lister[*catalog.Category]

	cache    cache.CacheService
	keys     cache.KeySerializer
	settings catalog.Settings
	logger   *zap.Logger
}

// NewStore builds a Store. Missing Keys, Settings and Logger get defaults.
func NewStore(cfg Config) *Store {
	if cfg.Keys == nil {
		cfg.Keys = cache.NewDefaultKeySerializer()
	}
	if cfg.Settings == nil {
		cfg.Settings = catalog.StaticSettings{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		products:   cfg.Products,
		offers:     cfg.Offers,
		brands:     cfg.Brands,
		categories: cfg.Categories,
		cache:      cfg.Cache,
		keys:       cfg.Keys,
		settings:   cfg.Settings,
		logger:     cfg.Logger.Named("item"),
	}
}

// Namespace returns the cache key namespace of entity items.
func Namespace(entity catalog.Entity) string {
	return entity.String() + ":item"
}

// Key returns the cache key of one item.
func (s *Store) Key(entity catalog.Entity, id uuid.UUID) string {
	return s.keys.SerializeKey(Namespace(entity), id)
}

// Get resolves any entity item. Unknown entities are an error.
func (s *Store) Get(ctx context.Context, entity catalog.Entity, id uuid.UUID) (Item, error) {
	switch entity {
	case catalog.EntityProduct:
		return s.Product(ctx, id)
	case catalog.EntityOffer:
		return s.Offer(ctx, id)
	case catalog.EntityBrand:
		return s.Brand(ctx, id)
	case catalog.EntityCategory:
		return s.Category(ctx, id)
	}
	return nil, catalog.UnknownEntityError(entity.String())
}

// Product returns the product projection. It is empty when the product does not
// exist, is inactive, or has no active offer while the offer check is enabled.
// Store errors are returned unchanged with a nil item.
func (s *Store) Product(ctx context.Context, id uuid.UUID) (*ProductItem, error) {
	if id == uuid.Nil {
		return &ProductItem{}, nil
	}
	cached, err := cache.GetOrFetch(ctx, s.cache, s.Key(catalog.EntityProduct, id), func(ctx context.Context) (*ProductItem, error) {
		return s.loadProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return cached.clone(s), nil
}

// Products resolves several products, keeping order and empty entries.
func (s *Store) Products(ctx context.Context, ids []uuid.UUID) ([]*ProductItem, error) {
	items := make([]*ProductItem, 0, len(ids))
	for _, id := range ids {
		it, err := s.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Offer returns the offer projection, empty when absent or inactive.
func (s *Store) Offer(ctx context.Context, id uuid.UUID) (*OfferItem, error) {
	if id == uuid.Nil {
		return &OfferItem{}, nil
	}
	cached, err := cache.GetOrFetch(ctx, s.cache, s.Key(catalog.EntityOffer, id), func(ctx context.Context) (*OfferItem, error) {
		return s.loadOffer(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return cached.clone(s), nil
}

// Brand returns the brand projection, empty when absent or inactive.
func (s *Store) Brand(ctx context.Context, id uuid.UUID) (*BrandItem, error) {
	if id == uuid.Nil {
		return &BrandItem{}, nil
	}
	cached, err := cache.GetOrFetch(ctx, s.cache, s.Key(catalog.EntityBrand, id), func(ctx context.Context) (*BrandItem, error) {
		return s.loadBrand(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	cp := *cached
	return &cp, nil
}

// Category returns the category projection, empty when absent or inactive.
func (s *Store) Category(ctx context.Context, id uuid.UUID) (*CategoryItem, error) {
	if id == uuid.Nil {
		return &CategoryItem{}, nil
	}
	cached, err := cache.GetOrFetch(ctx, s.cache, s.Key(catalog.EntityCategory, id), func(ctx context.Context) (*CategoryItem, error) {
		return s.loadCategory(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return cached.clone(s), nil
}

// Evict drops the cached items of entity with the given ids.
func (s *Store) Evict(ctx context.Context, entity catalog.Entity, ids ...uuid.UUID) error {
	for _, id := range ids {
		if err := s.cache.Delete(ctx, s.Key(entity, id)); err != nil {
			return err
		}
	}
	return nil
}

// EvictAll drops every cached item of entity.
func (s *Store) EvictAll(ctx context.Context, entity catalog.Entity) error {
	return s.cache.DeleteByPrefix(ctx, Namespace(entity)+cache.KeySeparator)
}

func (s *Store) loadProduct(ctx context.Context, id uuid.UUID) (*ProductItem, error) {
	s.logger.Debug("loading product", zap.Stringer("id", id))

	products, _, err := s.products.List(ctx, catalog.ByID(id))
	if err != nil {
		return nil, err
	}
	if len(products) == 0 || !products[0].Active {
		return &ProductItem{}, nil
	}

	offers, _, err := s.offers.List(ctx, catalog.ByProduct(id), catalog.OnlyActive(), catalog.Unlimited())
	if err != nil {
		return nil, err
	}
	sortOffers(offers)

	if len(offers) == 0 && s.settings.CheckOfferActive() {
		return &ProductItem{}, nil
	}
	return newProductItem(products[0], offers), nil
}

func (s *Store) loadOffer(ctx context.Context, id uuid.UUID) (*OfferItem, error) {
	s.logger.Debug("loading offer", zap.Stringer("id", id))

	offers, _, err := s.offers.List(ctx, catalog.ByID(id))
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 || !offers[0].Active {
		return &OfferItem{}, nil
	}
	return newOfferItem(offers[0]), nil
}

func (s *Store) loadBrand(ctx context.Context, id uuid.UUID) (*BrandItem, error) {
	s.logger.Debug("loading brand", zap.Stringer("id", id))

	brands, _, err := s.brands.List(ctx, catalog.ByID(id))
	if err != nil {
		return nil, err
	}
	if len(brands) == 0 || !brands[0].Active {
		return &BrandItem{}, nil
	}
	return newBrandItem(brands[0]), nil
}

func (s *Store) loadCategory(ctx context.Context, id uuid.UUID) (*CategoryItem, error) {
	s.logger.Debug("loading category", zap.Stringer("id", id))

	categories, _, err := s.categories.List(ctx, catalog.ByID(id))
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 || !categories[0].Active {
		return &CategoryItem{}, nil
	}
	return newCategoryItem(categories[0]), nil
}

func sortOffers(offers []*catalog.Offer) {
	sort.Slice(offers, func(i, j int) bool {
		return bytes.Compare(offers[i].ID[:], offers[j].ID[:]) < 0
	})
}
