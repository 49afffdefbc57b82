package testsupport

import (
	"context"
	"fmt"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/config"
	"github.com/goliatone/go-catalog-cache/pkg/di"
)

// DefaultFixture is the catalog seed shipped in testdata.
const DefaultFixture = "catalog.json"

// TestConfig returns a config backed by a private in-memory sqlite database.
func TestConfig() config.Config {
	cfg := config.Default()
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.Log.Level = "error"
	return cfg
}

// OpenTestCatalog builds a catalog over a fresh in-memory database and closes
// it when the test ends. mutate may adjust the config first.
func OpenTestCatalog(t testing.TB, mutate func(*config.Config), opts ...di.Option) *di.Catalog {
	t.Helper()

	cfg := TestConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]di.Option{di.WithLogger(zap.NewNop())}, opts...)

	cat, err := di.NewCatalog(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("failed to open test catalog: %v", err)
	}
	t.Cleanup(func() {
		if err := cat.Close(); err != nil {
			t.Errorf("failed to close test catalog: %v", err)
		}
	})
	return cat
}

// Fixture is the JSON seed format. Records reference each other by key.
type Fixture struct {
	Brands     []NamedFixture   `json:"brands"`
	Categories []NamedFixture   `json:"categories"`
	Products   []ProductFixture `json:"products"`
	Offers     []OfferFixture   `json:"offers"`
}

type NamedFixture struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
	Parent string `json:"parent"`
}

type ProductFixture struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Active   bool   `json:"active"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

type OfferFixture struct {
	Key      string `json:"key"`
	Product  string `json:"product"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	OldPrice string `json:"old_price"`
	Quantity int    `json:"quantity"`
	Active   bool   `json:"active"`
}

// Seeded maps fixture keys to the created records.
type Seeded struct {
	Brands     map[string]*catalog.Brand
	Categories map[string]*catalog.Category
	Products   map[string]*catalog.Product
	Offers     map[string]*catalog.Offer
}

// SeedFixture loads a fixture file and creates its records through the
// catalog's publishing repositories.
func SeedFixture(t testing.TB, cat *di.Catalog, path string) Seeded {
	t.Helper()

	var fx Fixture
	LoadFixtureJSON(t, path, &fx)
	return Seed(t, cat, fx)
}

// Seed creates the records of fx in dependency order.
func Seed(t testing.TB, cat *di.Catalog, fx Fixture) Seeded {
	t.Helper()

	s := Seeded{
		Brands:     map[string]*catalog.Brand{},
		Categories: map[string]*catalog.Category{},
		Products:   map[string]*catalog.Product{},
		Offers:     map[string]*catalog.Offer{},
	}

	for _, b := range fx.Brands {
		s.Brands[b.Key] = MustCreate[*catalog.Brand](t, cat.Brands(), &catalog.Brand{
			Name: b.Name, Code: b.Code, Active: b.Active,
		})
	}
	for _, c := range fx.Categories {
		record := &catalog.Category{Name: c.Name, Code: c.Code, Active: c.Active}
		if parent, ok := s.Categories[c.Parent]; ok {
			record.ParentID = parent.ID
			record.NestDepth = parent.NestDepth + 1
		}
		s.Categories[c.Key] = MustCreate[*catalog.Category](t, cat.Categories(), record)
	}
	for _, p := range fx.Products {
		record := &catalog.Product{Name: p.Name, Code: p.Code, Active: p.Active}
		if b, ok := s.Brands[p.Brand]; ok {
			record.BrandID = b.ID
		}
		if c, ok := s.Categories[p.Category]; ok {
			record.CategoryID = c.ID
		}
		s.Products[p.Key] = MustCreate[*catalog.Product](t, cat.Products(), record)
	}
	for _, o := range fx.Offers {
		product, ok := s.Products[o.Product]
		if !ok {
			t.Fatalf("offer %s references unknown product %q", o.Key, o.Product)
		}
		s.Offers[o.Key] = MustCreate[*catalog.Offer](t, cat.Offers(), &catalog.Offer{
			ProductID: product.ID,
			Name:      o.Name,
			Price:     MustPrice(t, o.Price),
			OldPrice:  MustPrice(t, o.OldPrice),
			Quantity:  o.Quantity,
			Active:    o.Active,
		})
	}
	return s
}

// MustCreate inserts record through repo or fails the test.
func MustCreate[T any](t testing.TB, repo repository.Repository[T], record T) T {
	t.Helper()

	created, err := repo.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("create %T: %v", record, err)
	}
	return created
}

// MustUpdate saves record through repo or fails the test.
func MustUpdate[T any](t testing.TB, repo repository.Repository[T], record T) T {
	t.Helper()

	updated, err := repo.Update(context.Background(), record)
	if err != nil {
		t.Fatalf("update %T: %v", record, err)
	}
	return updated
}

// MustDelete removes record through repo or fails the test.
func MustDelete[T any](t testing.TB, repo repository.Repository[T], record T) {
	t.Helper()

	if err := repo.Delete(context.Background(), record); err != nil {
		t.Fatalf("delete %T: %v", record, err)
	}
}

// MustPrice parses a price; an empty string is zero.
func MustPrice(t testing.TB, raw string) decimal.Decimal {
	t.Helper()

	if raw == "" {
		return decimal.Zero
	}
	price, err := catalog.ParsePrice(raw)
	if err != nil {
		t.Fatalf("bad price %q: %v", raw, err)
	}
	return price
}
