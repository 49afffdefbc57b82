// Package cache defines the read-through cache used by the catalog read models.
//
// CacheService is backed by sturdyc (see NewCacheService). Values are stored
// under keys built by a KeySerializer:
//
//	keys := cache.NewDefaultKeySerializer()
//	key := keys.SerializeKey("product:item", id) // product:item::0190...
//
//	item, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (*ProductItem, error) {
//		return load(ctx, id)
//	})
//
// Keys of one namespace share the "<namespace>::" prefix, which is what
// DeleteByPrefix relies on to evict a family of entries. The hashed serializer
// keeps the namespace readable and replaces the argument part with an xxhash
// digest; it is used for composite collection keys whose arguments can be long.
//
// Function values serialize to their code pointer. That is stable only within
// one process, so do not pass closures as key arguments for shared caches.
package cache
