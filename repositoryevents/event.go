package repositoryevents

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Operation is the kind of write that produced an Event.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// Event describes a committed write. Refs holds relation ids after the write
// (e.g. "product" for an offer), PrevRefs the same relations before it when they
// could be loaded. Bulk events come from criteria based writes and carry no ID.
type Event struct {
	Entity    string               `json:"entity"`
	Operation Operation            `json:"operation"`
	ID        uuid.UUID            `json:"id"`
	Refs      map[string]uuid.UUID `json:"refs,omitempty"`
	PrevRefs  map[string]uuid.UUID `json:"prev_refs,omitempty"`
	Bulk      bool                 `json:"bulk,omitempty"`
	Origin    string               `json:"origin,omitempty"`
}

// RelatedIDs returns the distinct non-nil ids stored under name in Refs and PrevRefs.
func (e Event) RelatedIDs(name string) []uuid.UUID {
	var ids []uuid.UUID
	for _, refs := range []map[string]uuid.UUID{e.Refs, e.PrevRefs} {
		id, ok := refs[name]
		if !ok || id == uuid.Nil {
			continue
		}
		if len(ids) == 1 && ids[0] == id {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Handler reacts to an Event. Handlers run synchronously inside Publish.
type Handler func(ctx context.Context, event Event) error

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is a synchronous in-process publish/subscribe hub. Publish returns only after
// every subscriber ran, which is what lets readers observe evictions as soon as a
// write call returns.
type Bus struct {
	subscribers *xsync.MapOf[uint64, Handler]
	nextID      atomic.Uint64
	logger      *zap.Logger
}

// NewBus creates an empty bus. A nil logger is replaced by a no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: xsync.NewMapOf[uint64, Handler](),
		logger:      logger.Named("events"),
	}
}

// Subscribe registers handler and returns a function removing it.
func (b *Bus) Subscribe(handler Handler) func() {
	id := b.nextID.Add(1)
	b.subscribers.Store(id, handler)
	return func() {
		b.subscribers.Delete(id)
	}
}

// Publish delivers event to every subscriber in subscription order.
// All subscribers run even when one fails; their errors are joined.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	ids := make([]uint64, 0, b.subscribers.Size())
	b.subscribers.Range(func(id uint64, _ Handler) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		handler, ok := b.subscribers.Load(id)
		if !ok {
			continue
		}
		if err := handler(ctx, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("entity", event.Entity),
				zap.String("operation", string(event.Operation)),
				zap.Stringer("id", event.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
