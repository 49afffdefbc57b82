package cacheinfra

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type projection struct {
	Name string
}

type fetchFn[T any] func(ctx context.Context) (T, error)

func newTestService(t *testing.T) *SturdycService {
	t.Helper()
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}
	return svc
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}
	if cfg.TTL != 10*time.Minute {
		t.Errorf("expected TTL to be 10 minutes, got %v", cfg.TTL)
	}
	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: true},
		{name: "negative shards", mutate: func(c *Config) { c.NumShards = -1 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantErr: true},
		{name: "eviction percentage too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantErr: true},
		{name: "eviction percentage zero", mutate: func(c *Config) { c.EvictionPercentage = 0 }, wantErr: true},
		{
			name: "negative early refresh delay",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -time.Second}
			},
			wantErr: true,
		},
		{
			name: "valid early refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: time.Second,
					MaxAsyncRefreshTime: 2 * time.Second,
					SyncRefreshTime:     3 * time.Second,
					RetryBaseDelay:      10 * time.Millisecond,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if tt.wantErr && !goerrors.IsCategory(err, goerrors.CategoryValidation) {
				t.Errorf("expected validation category, got %v", err)
			}
		})
	}
}

func TestNewSturdycService_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0

	svc, err := NewSturdycService(cfg)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if svc != nil {
		t.Error("expected nil service on error")
	}
}

func TestSturdycService_GetOrFetchCachesResult(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls atomic.Int32
	fetch := fetchFn[*projection](func(ctx context.Context) (*projection, error) {
		calls.Add(1)
		return &projection{Name: "first"}, nil
	})

	for i := 0; i < 3; i++ {
		got, err := svc.GetOrFetch(ctx, "product:item::1", fetch)
		if err != nil {
			t.Fatalf("GetOrFetch() failed: %v", err)
		}
		if got.(*projection).Name != "first" {
			t.Errorf("unexpected value %+v", got)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected a single fetch, got %d", calls.Load())
	}
}

func TestSturdycService_GetOrFetchPropagatesErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	storeDown := errors.New("connection refused")

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, storeDown
	}

	for i := 0; i < 2; i++ {
		_, err := svc.GetOrFetch(ctx, "product:item::down", fetch)
		if !errors.Is(err, storeDown) {
			t.Fatalf("expected store error, got %v", err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("errors must not be cached, fetch called %d times", calls.Load())
	}
}

func TestSturdycService_GetOrFetchRejectsBadFetchFn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		fetchFn any
		want    error
	}{
		{name: "nil", fetchFn: nil, want: errNilFetchFn},
		{name: "typed nil", fetchFn: fetchFn[int](nil), want: errNilFetchFn},
		{name: "not a function", fetchFn: "nope", want: errFetchFnSignature},
		{name: "missing context", fetchFn: func() (int, error) { return 0, nil }, want: errFetchFnSignature},
		{name: "missing error", fetchFn: func(ctx context.Context) int { return 0 }, want: errFetchFnSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetOrFetch(ctx, "probe", tt.fetchFn)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSturdycService_DeleteForcesRefetch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	name := "before"
	fetch := fetchFn[string](func(ctx context.Context) (string, error) {
		return name, nil
	})

	if got, _ := svc.GetOrFetch(ctx, "brand:item::1", fetch); got != "before" {
		t.Fatalf("unexpected value %v", got)
	}

	name = "after"
	if got, _ := svc.GetOrFetch(ctx, "brand:item::1", fetch); got != "before" {
		t.Fatalf("expected cached value, got %v", got)
	}

	if err := svc.Delete(ctx, "brand:item::1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if got, _ := svc.GetOrFetch(ctx, "brand:item::1", fetch); got != "after" {
		t.Errorf("expected refetched value, got %v", got)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	keys := []string{
		"product:list:active",
		"product:list:brand::1",
		"product:collection::abc",
		"offer:item::1",
	}
	for _, key := range keys {
		value := key
		if _, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) { return value, nil }); err != nil {
			t.Fatalf("GetOrFetch(%s) failed: %v", key, err)
		}
	}

	if err := svc.DeleteByPrefix(ctx, "product:list:"); err != nil {
		t.Fatalf("DeleteByPrefix() failed: %v", err)
	}

	remaining := svc.Keys()
	sort.Strings(remaining)
	want := []string{"offer:item::1", "product:collection::abc"}
	if len(remaining) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, remaining)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Errorf("expected keys %v, got %v", want, remaining)
		}
	}
}

func TestSturdycService_GetOrFetchTypedErrors(t *testing.T) {
	svc := newTestService(t)
	storeDown := errors.New("connection refused")

	var fetch fetchFn[*projection] = func(ctx context.Context) (*projection, error) {
		return nil, storeDown
	}
	if _, err := svc.GetOrFetch(context.Background(), "brand:item::down", fetch); !errors.Is(err, storeDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(svc.Keys()) != 0 {
		t.Errorf("failed fetches must not be stored, got keys %v", svc.Keys())
	}
}

func TestSturdycService_GetOrFetchNilResult(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		got, err := svc.GetOrFetch(ctx, "product:list:none", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected nil result to be cached, fetch called %d times", calls.Load())
	}
}
