package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubCacheService struct {
	result any
	err    error
}

func (s *stubCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return s.result, s.err
}

func (s *stubCacheService) Delete(ctx context.Context, key string) error { return nil }

func (s *stubCacheService) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }

func TestGetOrFetch_NilInterfaceResult(t *testing.T) {
	type projection interface{ IsEmpty() bool }

	result, err := GetOrFetch[projection](context.Background(), &stubCacheService{}, "product:item::1",
		func(ctx context.Context) (projection, error) { return nil, nil })

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_TypeMismatch(t *testing.T) {
	svc := &stubCacheService{result: "not a list"}

	result, err := GetOrFetch[[]uuid.UUID](context.Background(), svc, "product:list:all",
		func(ctx context.Context) ([]uuid.UUID, error) { return nil, nil })

	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError but got: %v", err)
	}
	if mismatch.Key != "product:list:all" {
		t.Errorf("expected key product:list:all, got %q", mismatch.Key)
	}
	if result != nil {
		t.Errorf("expected nil slice but got: %v", result)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	_, err := GetOrFetch[int](context.Background(), &stubCacheService{err: boom}, "k",
		func(ctx context.Context) (int, error) { return 0, boom })

	if !errors.Is(err, boom) {
		t.Errorf("expected %v but got: %v", boom, err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	ids := []uuid.UUID{uuid.New()}
	svc := &stubCacheService{result: ids}

	result, err := GetOrFetch[[]uuid.UUID](context.Background(), svc, "product:list:all",
		func(ctx context.Context) ([]uuid.UUID, error) { return ids, nil })

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if len(result) != 1 || result[0] != ids[0] {
		t.Errorf("expected %v but got: %v", ids, result)
	}
}
