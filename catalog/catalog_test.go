package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/repositoryevents"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"10.50", "10.50"},
		{"10,50", "10.50"},
		{" 1 200,5 ", "1200.50"},
		{"", "0.00"},
		{"3.456", "3.46"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatPrice(got))
		})
	}

	for _, raw := range []string{"-1", "ten", "10.5.5"} {
		_, err := ParsePrice(raw)
		assert.ErrorIs(t, err, ErrInvalidPrice, raw)
		assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation), raw)
	}
}

func TestMustParsePricePanics(t *testing.T) {
	assert.Panics(t, func() { MustParsePrice("abc") })
	assert.True(t, decimal.NewFromFloat(2.5).Equal(MustParsePrice("2,5")))
}

func TestParseEntity(t *testing.T) {
	for _, e := range append(Entities(), EntitySettings) {
		got, err := ParseEntity(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEntity("warehouse")
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		assert.Equal(t, -1, bytes.Compare(prev[:], next[:]))
		prev = next
	}
}

func TestInsertHookFillsDefaults(t *testing.T) {
	p := &Product{Name: "Cordless Drill"}
	require.NoError(t, p.BeforeAppendModel(context.Background(), new(bun.InsertQuery)))

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "cordless-drill", p.Slug)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestUpdateHookKeepsSlugAndIdentity(t *testing.T) {
	id := NewID()
	b := &Brand{ID: id, Name: "Acme Industries", Slug: "acme"}
	require.NoError(t, b.BeforeAppendModel(context.Background(), new(bun.UpdateQuery)))

	assert.Equal(t, id, b.ID)
	assert.Equal(t, "acme", b.Slug)
	assert.True(t, b.CreatedAt.IsZero())
	assert.False(t, b.UpdatedAt.IsZero())
}

func TestRefs(t *testing.T) {
	brand, category, product := NewID(), NewID(), NewID()

	assert.Equal(t, map[string]uuid.UUID{RefBrand: brand, RefCategory: category},
		ProductRefs(&Product{BrandID: brand, CategoryID: category}))
	assert.Equal(t, map[string]uuid.UUID{RefProduct: product}, OfferRefs(&Offer{ProductID: product}))
	assert.Nil(t, ProductRefs(nil))
	assert.Nil(t, OfferRefs(nil))
	assert.Nil(t, CategoryRefs(nil))
}

type recordingPublisher struct {
	events []repositoryevents.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e repositoryevents.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestSettingsStorePublishesOnChange(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := NewSettingsStore(false, pub)

	require.NoError(t, s.SetCheckOfferActive(ctx, false))
	assert.Empty(t, pub.events)

	require.NoError(t, s.SetCheckOfferActive(ctx, true))
	assert.True(t, s.CheckOfferActive())
	require.Len(t, pub.events, 1)
	assert.Equal(t, EntitySettings.String(), pub.events[0].Entity)
	assert.Equal(t, repositoryevents.OperationUpdated, pub.events[0].Operation)

	pub.err = errors.New("bus down")
	assert.ErrorIs(t, s.SetCheckOfferActive(ctx, false), pub.err)
	assert.False(t, s.CheckOfferActive())
}

func TestSettingsStoreWithoutPublisher(t *testing.T) {
	s := NewSettingsStore(true, nil)
	require.NoError(t, s.SetCheckOfferActive(context.Background(), false))
	assert.False(t, s.CheckOfferActive())
}
