package collection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/item"
)

// Cache key namespaces. Every key starts with "product:" so a single product
// change can clear them by prefix.
const (
	listPrefix       = "product:list:"
	collectionPrefix = "product:collection:"

	nsListAll       = listPrefix + "all"
	nsListActive    = listPrefix + "active"
	nsListCategory  = listPrefix + "category"
	nsListBrand     = listPrefix + "brand"
	nsListSort      = listPrefix + "sort"
	nsCollectionKey = "product:collection"
)

// Config wires a Store.
type Config struct {
	Products item.Lister[*catalog.Product]
	Offers   item.Lister[*catalog.Offer]
	Items    *item.Store

	Cache    cache.CacheService
	Keys     cache.KeySerializer
	HashKeys cache.KeySerializer
	Settings catalog.Settings
	Logger   *zap.Logger
}

// Store builds product collections and memoizes the identifier lists they
// resolve to.
type Store struct {
	products item.Lister[*catalog.Product]
	offers   item.Lister[*catalog.Offer]
	items    *item.Store

	cache    cache.CacheService
	keys     cache.KeySerializer
	hashKeys cache.KeySerializer
	settings catalog.Settings
	logger   *zap.Logger
}

// NewStore builds a Store. Missing serializers, Settings and Logger get defaults.
func NewStore(cfg Config) *Store {
	if cfg.Keys == nil {
		cfg.Keys = cache.NewDefaultKeySerializer()
	}
	if cfg.HashKeys == nil {
		cfg.HashKeys = cache.NewHashedKeySerializer()
	}
	if cfg.Settings == nil {
		cfg.Settings = catalog.StaticSettings{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		products: cfg.Products,
		offers:   cfg.Offers,
		items:    cfg.Items,
		cache:    cfg.Cache,
		keys:     cfg.Keys,
		hashKeys: cfg.HashKeys,
		settings: cfg.Settings,
		logger:   cfg.Logger.Named("collection"),
	}
}

// Make starts a collection. Without ids it covers every product; with ids it
// covers exactly those, in the given order with duplicates dropped. Visibility
// filtering is opt-in: only Active() removes inactive products.
func (s *Store) Make(ids ...uuid.UUID) ProductCollection {
	c := ProductCollection{store: s}
	if len(ids) == 0 {
		return c
	}
	c.explicit = true
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

// EvictAll drops every cached list and collection result.
func (s *Store) EvictAll(ctx context.Context) error {
	if err := s.cache.DeleteByPrefix(ctx, listPrefix); err != nil {
		return err
	}
	return s.EvictCollections(ctx)
}

// EvictCollections drops the memoized collection results only.
func (s *Store) EvictCollections(ctx context.Context) error {
	return s.cache.DeleteByPrefix(ctx, collectionPrefix)
}

// EvictCategory drops the list of products in categoryID and all results.
func (s *Store) EvictCategory(ctx context.Context, categoryID uuid.UUID) error {
	if err := s.cache.Delete(ctx, s.keys.SerializeKey(nsListCategory, categoryID)); err != nil {
		return err
	}
	return s.EvictCollections(ctx)
}

// EvictBrand drops the list of products of brandID and all results.
func (s *Store) EvictBrand(ctx context.Context, brandID uuid.UUID) error {
	if err := s.cache.Delete(ctx, s.keys.SerializeKey(nsListBrand, brandID)); err != nil {
		return err
	}
	return s.EvictCollections(ctx)
}

func (s *Store) resolve(ctx context.Context, c ProductCollection) ([]uuid.UUID, error) {
	check := s.settings.CheckOfferActive()
	key := s.hashKeys.SerializeKey(nsCollectionKey, c.signature(check))

	ids, err := cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]uuid.UUID, error) {
		s.logger.Debug("resolving collection", zap.String("key", key))
		return s.compute(ctx, c, check)
	})
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID(nil), ids...), nil
}

func (s *Store) compute(ctx context.Context, c ProductCollection, check bool) ([]uuid.UUID, error) {
	ids := c.ids
	if !c.explicit {
		all, err := s.allIDs(ctx)
		if err != nil {
			return nil, err
		}
		ids = all
	}

	if c.active {
		active, err := s.activeIDs(ctx, check)
		if err != nil {
			return nil, err
		}
		ids = intersect(ids, active)
	}
	for _, categoryID := range c.categories {
		members, err := s.categoryIDs(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		ids = intersect(ids, members)
	}
	for _, brandID := range c.brands {
		members, err := s.brandIDs(ctx, brandID)
		if err != nil {
			return nil, err
		}
		ids = intersect(ids, members)
	}

	if c.sort == "" {
		return ids, nil
	}
	ordered, err := s.sortedIDs(ctx, c.sort, check)
	if err != nil {
		return nil, err
	}
	return reorder(ordered, ids), nil
}

func (s *Store) allIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.cachedList(ctx, s.keys.SerializeKey(nsListAll), func(ctx context.Context) ([]uuid.UUID, error) {
		products, _, err := s.products.List(ctx, catalog.IDsOnly(), catalog.OrderByID(false), catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		return productIDs(products), nil
	})
}

func (s *Store) activeIDs(ctx context.Context, check bool) ([]uuid.UUID, error) {
	return s.cachedList(ctx, s.keys.SerializeKey(nsListActive, check), func(ctx context.Context) ([]uuid.UUID, error) {
		products, _, err := s.products.List(ctx, catalog.IDsOnly(), catalog.OnlyActive(), catalog.OrderByID(false), catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		ids := productIDs(products)
		if !check {
			return ids, nil
		}
		offers, _, err := s.offers.List(ctx, catalog.OnlyActive(), catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		withOffer := make(map[uuid.UUID]struct{}, len(offers))
		for _, offer := range offers {
			withOffer[offer.ProductID] = struct{}{}
		}
		kept := ids[:0]
		for _, id := range ids {
			if _, ok := withOffer[id]; ok {
				kept = append(kept, id)
			}
		}
		return kept, nil
	})
}

func (s *Store) categoryIDs(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	return s.cachedList(ctx, s.keys.SerializeKey(nsListCategory, categoryID), func(ctx context.Context) ([]uuid.UUID, error) {
		products, _, err := s.products.List(ctx, catalog.IDsOnly(), catalog.ByCategory(categoryID), catalog.OrderByID(false), catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		return productIDs(products), nil
	})
}

func (s *Store) brandIDs(ctx context.Context, brandID uuid.UUID) ([]uuid.UUID, error) {
	return s.cachedList(ctx, s.keys.SerializeKey(nsListBrand, brandID), func(ctx context.Context) ([]uuid.UUID, error) {
		products, _, err := s.products.List(ctx, catalog.IDsOnly(), catalog.ByBrand(brandID), catalog.OrderByID(false), catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		return productIDs(products), nil
	})
}

func (s *Store) sortedIDs(ctx context.Context, mode Sort, check bool) ([]uuid.UUID, error) {
	var key string
	if mode.isPrice() {
		key = s.keys.SerializeKey(nsListSort, string(mode), check)
	} else {
		key = s.keys.SerializeKey(nsListSort, string(mode))
	}

	return s.cachedList(ctx, key, func(ctx context.Context) ([]uuid.UUID, error) {
		all, err := s.allIDs(ctx)
		if err != nil {
			return nil, err
		}
		ids := append([]uuid.UUID(nil), all...)
		switch mode {
		case SortNo:
			sortIDs(ids, false)
			return ids, nil
		case SortNew:
			sortIDs(ids, true)
			return ids, nil
		}
		offers, _, err := s.offers.List(ctx, catalog.Unlimited())
		if err != nil {
			return nil, err
		}
		return rankByPrice(ids, offers, check, mode == SortPriceDesc), nil
	})
}

func (s *Store) cachedList(ctx context.Context, key string, load func(context.Context) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	return cache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) ([]uuid.UUID, error) {
		ids, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		return ids, nil
	})
}

func productIDs(products []*catalog.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

// intersect keeps the ids of base that are present in members, in base order.
func intersect(base, members []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(base))
	for _, id := range base {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// reorder returns the ids of subset in the order they appear in ordered.
// Ids missing from ordered are dropped.
func reorder(ordered, subset []uuid.UUID) []uuid.UUID {
	return intersect(ordered, subset)
}
