package catalog

import (
	"context"
	"sync/atomic"

	"github.com/goliatone/go-catalog-cache/repositoryevents"
)

// SettingCheckOfferActive is the settings key for the offer activity check.
const SettingCheckOfferActive = "check_offer_active"

// Settings exposes the catalog flags read by the item and collection layers.
type Settings interface {
	// CheckOfferActive reports whether a product needs an active offer to be visible.
	CheckOfferActive() bool
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	OfferActiveCheck bool
}

func (s StaticSettings) CheckOfferActive() bool {
	return s.OfferActiveCheck
}

// SettingsStore holds mutable settings and announces changes on the event bus so
// cached projections computed under the old value are evicted.
type SettingsStore struct {
	checkOfferActive atomic.Bool
	publisher        repositoryevents.Publisher
}

// NewSettingsStore creates a store with the given initial flag. publisher may be nil.
func NewSettingsStore(checkOfferActive bool, publisher repositoryevents.Publisher) *SettingsStore {
	s := &SettingsStore{publisher: publisher}
	s.checkOfferActive.Store(checkOfferActive)
	return s
}

func (s *SettingsStore) CheckOfferActive() bool {
	return s.checkOfferActive.Load()
}

// SetCheckOfferActive updates the flag. A change publishes a settings event and
// returns the publisher's error, if any.
func (s *SettingsStore) SetCheckOfferActive(ctx context.Context, enabled bool) error {
	if s.checkOfferActive.Swap(enabled) == enabled {
		return nil
	}
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, repositoryevents.Event{
		Entity:    EntitySettings.String(),
		Operation: repositoryevents.OperationUpdated,
	})
}
