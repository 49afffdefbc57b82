package di

import (
	"context"
	"errors"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/collection"
	"github.com/goliatone/go-catalog-cache/config"
	"github.com/goliatone/go-catalog-cache/invalidation"
	"github.com/goliatone/go-catalog-cache/item"
	"github.com/goliatone/go-catalog-cache/repositoryevents"
)

// TextCodeUnsupportedEntity tags CollectionMake calls for entities without collections.
const TextCodeUnsupportedEntity = "CATALOG_UNSUPPORTED_ENTITY"

// Option customizes NewCatalog.
type Option func(*options)

type options struct {
	db         *bun.DB
	logger     *zap.Logger
	registerer prometheus.Registerer
	redis      invalidation.RedisClient
}

// WithDB uses db instead of opening one from the database config. The caller
// keeps ownership: Close does not close it.
func WithDB(db *bun.DB) Option {
	return func(o *options) { o.db = db }
}

// WithLogger replaces the logger built from the log config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the invalidation metrics on r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithRedisClient uses client for cross-process invalidation instead of
// dialing the configured address. Redis must still be enabled in the config.
func WithRedisClient(client invalidation.RedisClient) Option {
	return func(o *options) { o.redis = client }
}

// Catalog owns the database, cache, repositories and read models of one
// catalog. Writes must go through Products, Offers, Brands and Categories so
// the cache sees them.
type Catalog struct {
	config config.Config
	db     *bun.DB
	logger *zap.Logger

	bus           *repositoryevents.Bus
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	settings      *catalog.SettingsStore

	products   *repositoryevents.Repository[*catalog.Product]
	offers     *repositoryevents.Repository[*catalog.Offer]
	brands     *repositoryevents.Repository[*catalog.Brand]
	categories *repositoryevents.Repository[*catalog.Category]

	items       *item.Store
	collections *collection.Store
	invalidator *invalidation.Invalidator
	broadcaster *invalidation.RedisBroadcaster

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// NewCatalog wires a Catalog from cfg.
func NewCatalog(ctx context.Context, cfg config.Config, opts ...Option) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Catalog{config: cfg}

	logger := o.logger
	if logger == nil {
		built, err := cfg.Log.NewLogger()
		if err != nil {
			return nil, err
		}
		logger = built
		c.closers = append(c.closers, func() error {
			_ = built.Sync()
			return nil
		})
	}
	c.logger = logger

	db := o.db
	if db == nil {
		opened, err := OpenDB(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		db = opened
		c.closers = append(c.closers, opened.Close)
	}
	c.db = db

	if cfg.Database.CreateSchema {
		if err := catalog.CreateSchema(ctx, db); err != nil {
			c.Close()
			return nil, err
		}
	}

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.cacheService = cacheService
	c.keySerializer = cache.NewDefaultKeySerializer()

	c.bus = repositoryevents.NewBus(logger)
	c.settings = catalog.NewSettingsStore(cfg.Catalog.CheckOfferActive, c.bus)

	c.products = repositoryevents.New(newBunRepository[catalog.Product](db), c.bus, repositoryevents.Options[*catalog.Product]{
		Entity:  catalog.EntityProduct.String(),
		ID:      func(p *catalog.Product) uuid.UUID { return p.ID },
		Refs:    catalog.ProductRefs,
		Prepare: func(p *catalog.Product) { ensureID(&p.ID) },
		Logger:  logger,
	})
	c.offers = repositoryevents.New(newBunRepository[catalog.Offer](db), c.bus, repositoryevents.Options[*catalog.Offer]{
		Entity:  catalog.EntityOffer.String(),
		ID:      func(o *catalog.Offer) uuid.UUID { return o.ID },
		Refs:    catalog.OfferRefs,
		Prepare: func(o *catalog.Offer) { ensureID(&o.ID) },
		Logger:  logger,
	})
	c.brands = repositoryevents.New(newBunRepository[catalog.Brand](db), c.bus, repositoryevents.Options[*catalog.Brand]{
		Entity:  catalog.EntityBrand.String(),
		ID:      func(b *catalog.Brand) uuid.UUID { return b.ID },
		Prepare: func(b *catalog.Brand) { ensureID(&b.ID) },
		Logger:  logger,
	})
	c.categories = repositoryevents.New(newBunRepository[catalog.Category](db), c.bus, repositoryevents.Options[*catalog.Category]{
		Entity:  catalog.EntityCategory.String(),
		ID:      func(cat *catalog.Category) uuid.UUID { return cat.ID },
		Refs:    catalog.CategoryRefs,
		Prepare: func(cat *catalog.Category) { ensureID(&cat.ID) },
		Logger:  logger,
	})

	c.items = item.NewStore(item.Config{
		Products:   c.products,
		Offers:     c.offers,
		Brands:     c.brands,
		Categories: c.categories,
		Cache:      cacheService,
		Keys:       c.keySerializer,
		Settings:   c.settings,
		Logger:     logger,
	})
	c.collections = collection.NewStore(collection.Config{
		Products: c.products,
		Offers:   c.offers,
		Items:    c.items,
		Cache:    cacheService,
		Keys:     c.keySerializer,
		Settings: c.settings,
		Logger:   logger,
	})

	c.invalidator = invalidation.New(invalidation.Config{
		Items:       c.items,
		Collections: c.collections,
		Metrics:     invalidation.NewMetrics(o.registerer),
		Logger:      logger,
	})
	unsubscribe := c.invalidator.Subscribe(c.bus)
	c.closers = append(c.closers, func() error {
		unsubscribe()
		return nil
	})

	if cfg.Redis.Enabled {
		c.startBroadcaster(o.redis)
	}

	logger.Info("catalog ready",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("check_offer_active", cfg.Catalog.CheckOfferActive),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return c, nil
}

// NewCatalogWithDefaults builds a Catalog over an in-memory sqlite database.
func NewCatalogWithDefaults(ctx context.Context, opts ...Option) (*Catalog, error) {
	return NewCatalog(ctx, config.Default(), opts...)
}

func (c *Catalog) startBroadcaster(client invalidation.RedisClient) {
	if client == nil {
		rc := redis.NewClient(&redis.Options{
			Addr:     c.config.Redis.Addr,
			Password: c.config.Redis.Password,
			DB:       c.config.Redis.DB,
		})
		client = rc
		c.closers = append(c.closers, rc.Close)
	}
	c.broadcaster = invalidation.NewRedisBroadcaster(client, c.config.Redis.Channel, c.invalidator, c.logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.broadcaster.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("invalidation listener stopped", zap.Error(err))
		}
	}()
	c.closers = append(c.closers, func() error {
		cancel()
		<-done
		return nil
	})
}

// ItemGet returns the cached projection of entity id. Absent and hidden
// records give an empty item, never an error.
func (c *Catalog) ItemGet(ctx context.Context, entity catalog.Entity, id uuid.UUID) (item.Item, error) {
	return c.items.Get(ctx, entity, id)
}

// CollectionMake starts a collection of entity. Only products have collections.
func (c *Catalog) CollectionMake(entity catalog.Entity, ids ...uuid.UUID) (collection.ProductCollection, error) {
	if entity != catalog.EntityProduct {
		return collection.ProductCollection{}, goerrors.New("collections are only available for products", goerrors.CategoryValidation).
			WithTextCode(TextCodeUnsupportedEntity)
	}
	return c.collections.Make(ids...), nil
}

// ProductCollection is CollectionMake for products.
func (c *Catalog) ProductCollection(ids ...uuid.UUID) collection.ProductCollection {
	return c.collections.Make(ids...)
}

func (c *Catalog) Product(ctx context.Context, id uuid.UUID) (*item.ProductItem, error) {
	return c.items.Product(ctx, id)
}

func (c *Catalog) Offer(ctx context.Context, id uuid.UUID) (*item.OfferItem, error) {
	return c.items.Offer(ctx, id)
}

func (c *Catalog) Brand(ctx context.Context, id uuid.UUID) (*item.BrandItem, error) {
	return c.items.Brand(ctx, id)
}

func (c *Catalog) Category(ctx context.Context, id uuid.UUID) (*item.CategoryItem, error) {
	return c.items.Category(ctx, id)
}

// Products returns the publishing product repository.
func (c *Catalog) Products() *repositoryevents.Repository[*catalog.Product] { return c.products }

// Offers returns the publishing offer repository.
func (c *Catalog) Offers() *repositoryevents.Repository[*catalog.Offer] { return c.offers }

// Brands returns the publishing brand repository.
func (c *Catalog) Brands() *repositoryevents.Repository[*catalog.Brand] { return c.brands }

// Categories returns the publishing category repository.
func (c *Catalog) Categories() *repositoryevents.Repository[*catalog.Category] { return c.categories }

// Settings returns the mutable catalog settings.
func (c *Catalog) Settings() *catalog.SettingsStore { return c.settings }

// Items returns the item store.
func (c *Catalog) Items() *item.Store { return c.items }

// Collections returns the collection store.
func (c *Catalog) Collections() *collection.Store { return c.collections }

// Bus returns the change event bus. Extra subscribers run after the invalidator.
func (c *Catalog) Bus() *repositoryevents.Bus { return c.bus }

// CacheService returns the cache engine shared by the read models.
func (c *Catalog) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the serializer used for item and list keys.
func (c *Catalog) KeySerializer() cache.KeySerializer { return c.keySerializer }

// DB returns the underlying database handle.
func (c *Catalog) DB() *bun.DB { return c.db }

// Config returns a copy of the configuration the catalog was built with.
func (c *Catalog) Config() config.Config { return c.config }

// Close stops the invalidation listener and releases what NewCatalog opened,
// in reverse order. It is safe to call more than once.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = catalog.NewID()
	}
}
