package cache

import "context"

// KeySerializer builds a cache key from a namespace + arbitrary args.
// Keys for the same namespace share a common prefix so they can be evicted together.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through and eviction operations used by the catalog read models.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is a type-safe wrapper around CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Got: result}
	}
	return typed, nil
}

// TypeMismatchError is returned when a cached value cannot be asserted to the requested type.
// It usually means two read models share a key namespace.
type TypeMismatchError struct {
	Key string
	Got any
}

func (e *TypeMismatchError) Error() string {
	return "cache: unexpected value type stored under key " + e.Key
}
