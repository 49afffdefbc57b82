package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type filterState struct {
	Active     bool
	Categories []uuid.UUID
	Sort       string
	internal   int
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name      string
		namespace string
		args      []any
		want      string
	}{
		{
			name:      "no args",
			namespace: "product:list:all",
			args:      []any{},
			want:      "product:list:all",
		},
		{
			name:      "single int",
			namespace: "product:list:sort",
			args:      []any{2},
			want:      joinWithSeparator("product:list:sort", "2"),
		},
		{
			name:      "multiple basic types",
			namespace: "probe",
			args:      []any{1, "hello", true, 3.14},
			want:      joinWithSeparator("probe", "1", "hello", "true", "3.14"),
		},
		{
			name:      "nil arg",
			namespace: "probe",
			args:      []any{nil},
			want:      joinWithSeparator("probe", "nil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.namespace, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_UUIDUsesCanonicalForm(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := uuid.MustParse("0190f0c4-7c1e-7d2a-9a41-5b7a3c2d1e0f")

	got := serializer.SerializeKey("product:item", id)
	want := "product:item::0190f0c4-7c1e-7d2a-9a41-5b7a3c2d1e0f"
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}

	var nilPtr *uuid.UUID
	if got := serializer.SerializeKey("product:item", nilPtr); got != joinWithSeparator("product:item", "nil") {
		t.Errorf("nil pointer rendered as %v", got)
	}
}

func TestDefaultKeySerializer_StructSkipsUnexportedFields(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := uuid.MustParse("0190f0c4-7c1e-7d2a-9a41-5b7a3c2d1e0f")

	got := serializer.SerializeKey("product:collection", filterState{
		Active:     true,
		Categories: []uuid.UUID{id},
		Sort:       "new",
		internal:   42,
	})

	want := "product:collection::struct:{Active:true,Categories:slice[1]:{0190f0c4-7c1e-7d2a-9a41-5b7a3c2d1e0f},Sort:new}"
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_MapsAreDeterministic(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	first := serializer.SerializeKey("probe", map[string]int{"b": 2, "a": 1, "c": 3})
	for i := 0; i < 20; i++ {
		again := serializer.SerializeKey("probe", map[string]int{"c": 3, "a": 1, "b": 2})
		if again != first {
			t.Fatalf("map serialization not deterministic: %v vs %v", first, again)
		}
	}

	if want := "probe::map[3]:{a=1,b=2,c=3}"; first != want {
		t.Errorf("SerializeKey() = %v, want %v", first, want)
	}
}

func TestDefaultKeySerializer_NilCollections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	var ids []uuid.UUID
	var lookup map[string]bool

	if got := serializer.SerializeKey("probe", ids); got != joinWithSeparator("probe", "slice:nil") {
		t.Errorf("nil slice rendered as %v", got)
	}
	if got := serializer.SerializeKey("probe", lookup); got != joinWithSeparator("probe", "map:nil") {
		t.Errorf("nil map rendered as %v", got)
	}
	if got := serializer.SerializeKey("probe", []uuid.UUID{}); got != joinWithSeparator("probe", "slice[0]:{}") {
		t.Errorf("empty slice rendered as %v", got)
	}
}

func TestHashedKeySerializer_KeepsNamespacePrefix(t *testing.T) {
	serializer := NewHashedKeySerializer()
	state := filterState{Active: true, Sort: "price|asc"}

	key := serializer.SerializeKey("product:collection", state)
	if !strings.HasPrefix(key, "product:collection"+KeySeparator) {
		t.Fatalf("hashed key lost its namespace: %v", key)
	}
	if strings.Contains(key, "price") {
		t.Errorf("hashed key should not contain raw arguments: %v", key)
	}

	if again := serializer.SerializeKey("product:collection", state); again != key {
		t.Errorf("hashed key not stable: %v vs %v", key, again)
	}

	state.Active = false
	if other := serializer.SerializeKey("product:collection", state); other == key {
		t.Errorf("different states produced the same key %v", key)
	}
}
