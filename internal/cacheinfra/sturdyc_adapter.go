package cacheinfra

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/viccon/sturdyc"
)

var (
	errNilFetchFn       = errors.New("cacheinfra: fetchFn cannot be nil")
	errFetchFnSignature = errors.New("cacheinfra: fetchFn must have signature func(context.Context) (T, error)")

	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// SturdycService wraps a sturdyc client providing read-through caching
// and the eviction primitives the invalidator relies on.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the sturdyc client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key or calls fetchFn and stores its result.
// fetchFn must be a func(context.Context) (T, error); generic cache.FetchFn[T]
// values are invoked through reflection. Errors from fetchFn are returned as-is
// and nothing is stored.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		value, err := callFetchFn(ctx, fetchFn)
		if err != nil {
			return nilValue{}, err
		}
		if value == nil {
			return nilValue{}, nil
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	if _, ok := value.(nilValue); ok {
		return nil, nil
	}
	return value, nil
}

// nilValue stands in for nil results, which sturdyc rejects as an invalid type.
type nilValue struct{}

// Delete removes a single key.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Keys lists the keys currently held, mostly useful for tests and diagnostics.
func (s *SturdycService) Keys() []string {
	return s.client.ScanKeys()
}

func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return errNilFetchFn
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func || fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return errFetchFnSignature
	}
	if !fnType.In(0).Implements(contextType) && fnType.In(0) != contextType {
		return errFetchFnSignature
	}
	if !fnType.Out(1).Implements(errorType) {
		return errFetchFnSignature
	}
	if reflect.ValueOf(fetchFn).IsNil() {
		return errNilFetchFn
	}
	return nil
}

func callFetchFn(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(&ctx).Elem()})

	var err error
	if errValue := results[1]; !errValue.IsNil() {
		err = errValue.Interface().(error)
	}
	return results[0].Interface(), err
}
