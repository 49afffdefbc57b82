package collection

import (
	"bytes"
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// Sort selects the ordering of a collection.
type Sort string

const (
	// SortNo orders by identifier ascending, which is creation order.
	SortNo Sort = "no"
	// SortNew orders by identifier descending, newest first.
	SortNew Sort = "new"
	// SortPriceAsc orders by effective price, cheapest first.
	SortPriceAsc Sort = "price|asc"
	// SortPriceDesc orders by effective price, most expensive first.
	SortPriceDesc Sort = "price|desc"
)

// TextCodeUnknownSort tags ParseSort failures.
const TextCodeUnknownSort = "CATALOG_UNKNOWN_SORT"

// Sorts lists the supported sort modes.
func Sorts() []Sort {
	return []Sort{SortNo, SortNew, SortPriceAsc, SortPriceDesc}
}

// ParseSort maps a raw mode to a Sort. The empty string means SortNo.
func ParseSort(raw string) (Sort, error) {
	if raw == "" {
		return SortNo, nil
	}
	for _, mode := range Sorts() {
		if string(mode) == raw {
			return mode, nil
		}
	}
	return "", goerrors.New(fmt.Sprintf("unknown sort %q", raw), goerrors.CategoryValidation).
		WithTextCode(TextCodeUnknownSort)
}

func (s Sort) isPrice() bool {
	return s == SortPriceAsc || s == SortPriceDesc
}

// pricedProduct is one row of a price ordering.
type pricedProduct struct {
	id     uuid.UUID
	price  decimal.Decimal
	priced bool
}

// rankByPrice orders product ids by effective price: the cheapest active offer.
// With requireActiveOffer, products without an active offer are left out; otherwise
// they are ranked by their cheapest offer of any state, and products without offers
// trail the list in identifier order.
func rankByPrice(productIDs []uuid.UUID, offers []*catalog.Offer, requireActiveOffer, desc bool) []uuid.UUID {
	cheapestActive := make(map[uuid.UUID]decimal.Decimal)
	cheapestAny := make(map[uuid.UUID]decimal.Decimal)
	for _, offer := range offers {
		if current, ok := cheapestAny[offer.ProductID]; !ok || offer.Price.LessThan(current) {
			cheapestAny[offer.ProductID] = offer.Price
		}
		if !offer.Active {
			continue
		}
		if current, ok := cheapestActive[offer.ProductID]; !ok || offer.Price.LessThan(current) {
			cheapestActive[offer.ProductID] = offer.Price
		}
	}

	rows := make([]pricedProduct, 0, len(productIDs))
	for _, id := range productIDs {
		if price, ok := cheapestActive[id]; ok {
			rows = append(rows, pricedProduct{id: id, price: price, priced: true})
			continue
		}
		if requireActiveOffer {
			continue
		}
		price, ok := cheapestAny[id]
		rows = append(rows, pricedProduct{id: id, price: price, priced: ok})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.priced != b.priced {
			return a.priced
		}
		if a.priced && !a.price.Equal(b.price) {
			if desc {
				return a.price.GreaterThan(b.price)
			}
			return a.price.LessThan(b.price)
		}
		return compareIDs(a.id, b.id) < 0
	})

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.id
	}
	return ids
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func sortIDs(ids []uuid.UUID, desc bool) {
	sort.Slice(ids, func(i, j int) bool {
		if desc {
			return compareIDs(ids[i], ids[j]) > 0
		}
		return compareIDs(ids[i], ids[j]) < 0
	})
}
