// Package invalidation evicts cached items, product lists and collection
// results when catalog records change.
//
// The Invalidator subscribes to the in-process event bus, so evictions are
// done before a write returns. A RedisBroadcaster can be attached to share
// events with other processes; remote events are applied without being
// forwarded again.
package invalidation
