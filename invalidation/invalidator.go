package invalidation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/repositoryevents"
)

// ItemEvicter drops cached item projections.
type ItemEvicter interface {
	Evict(ctx context.Context, entity catalog.Entity, ids ...uuid.UUID) error
	EvictAll(ctx context.Context, entity catalog.Entity) error
}

// CollectionEvicter drops cached product lists and collection results.
type CollectionEvicter interface {
	EvictAll(ctx context.Context) error
	EvictCategory(ctx context.Context, categoryID uuid.UUID) error
	EvictBrand(ctx context.Context, brandID uuid.UUID) error
}

// Forwarder receives every locally applied event, e.g. to fan it out to other
// processes.
type Forwarder interface {
	Forward(ctx context.Context, event repositoryevents.Event) error
}

// Config wires an Invalidator.
type Config struct {
	Items       ItemEvicter
	Collections CollectionEvicter
	Forwarder   Forwarder
	Metrics     *Metrics
	Logger      *zap.Logger
}

// Invalidator maps change events to cache evictions.
type Invalidator struct {
	items       ItemEvicter
	collections CollectionEvicter
	forwarder   Forwarder
	metrics     *Metrics
	logger      *zap.Logger
}

// New creates an Invalidator. Metrics and Logger default to unregistered
// counters and a no-op logger.
func New(cfg Config) *Invalidator {
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Invalidator{
		items:       cfg.Items,
		collections: cfg.Collections,
		forwarder:   cfg.Forwarder,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.Named("invalidation"),
	}
}

// SetForwarder replaces the forwarder. Call it before events flow.
func (i *Invalidator) SetForwarder(f Forwarder) {
	i.forwarder = f
}

// Subscribe attaches the invalidator to bus and returns the unsubscribe func.
func (i *Invalidator) Subscribe(bus *repositoryevents.Bus) func() {
	return bus.Subscribe(i.Handle)
}

// Handle is the bus handler. It applies the event locally and forwards events
// that originated in this process. Failures are logged and counted; they never
// surface to the writer.
func (i *Invalidator) Handle(ctx context.Context, event repositoryevents.Event) error {
	if err := i.Apply(ctx, event); err != nil {
		i.metrics.failed(event.Entity)
		i.logger.Error("cache eviction failed",
			zap.String("entity", event.Entity),
			zap.String("operation", string(event.Operation)),
			zap.Stringer("id", event.ID),
			zap.Error(err),
		)
	}
	if i.forwarder != nil && event.Origin == "" {
		if err := i.forwarder.Forward(ctx, event); err != nil {
			i.logger.Warn("event forward failed", zap.String("entity", event.Entity), zap.Error(err))
		}
	}
	return nil
}

// Apply performs the evictions for event and returns the joined errors.
func (i *Invalidator) Apply(ctx context.Context, event repositoryevents.Event) error {
	entity, err := catalog.ParseEntity(event.Entity)
	if err != nil {
		i.logger.Debug("ignoring event", zap.String("entity", event.Entity))
		return nil
	}

	var errs []error
	switch entity {
	case catalog.EntityProduct:
		errs = append(errs, i.evictItems(ctx, entity, event))
		errs = append(errs, i.collections.EvictAll(ctx))
	case catalog.EntityOffer:
		errs = append(errs, i.evictItems(ctx, entity, event))
		if event.Bulk {
			errs = append(errs, i.items.EvictAll(ctx, catalog.EntityProduct))
		} else if products := event.RelatedIDs(catalog.RefProduct); len(products) > 0 {
			errs = append(errs, i.items.Evict(ctx, catalog.EntityProduct, products...))
		}
		errs = append(errs, i.collections.EvictAll(ctx))
	case catalog.EntityBrand:
		errs = append(errs, i.evictItems(ctx, entity, event))
		errs = append(errs, i.evictFilter(ctx, event, i.collections.EvictBrand))
	case catalog.EntityCategory:
		errs = append(errs, i.evictItems(ctx, entity, event))
		errs = append(errs, i.evictFilter(ctx, event, i.collections.EvictCategory))
	case catalog.EntitySettings:
		errs = append(errs, i.items.EvictAll(ctx, catalog.EntityProduct))
		errs = append(errs, i.collections.EvictAll(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	i.metrics.evicted(entity.String(), string(event.Operation))
	i.logger.Debug("evicted",
		zap.String("entity", event.Entity),
		zap.String("operation", string(event.Operation)),
		zap.Stringer("id", event.ID),
	)
	return nil
}

func (i *Invalidator) evictItems(ctx context.Context, entity catalog.Entity, event repositoryevents.Event) error {
	if event.Bulk || event.ID == uuid.Nil {
		return i.items.EvictAll(ctx, entity)
	}
	return i.items.Evict(ctx, entity, event.ID)
}

// evictFilter clears the product list filtered by the changed record. Bulk
// events have no id, so every list and result goes.
func (i *Invalidator) evictFilter(ctx context.Context, event repositoryevents.Event, evict func(context.Context, uuid.UUID) error) error {
	if event.Bulk || event.ID == uuid.Nil {
		return i.collections.EvictAll(ctx)
	}
	return evict(ctx, event.ID)
}
