// Package collection builds filtered and sorted lists of product identifiers.
//
// A ProductCollection is created by Store.Make and narrowed with Active,
// Category, Brand and Sort. Filters are applied as intersections, so their
// order does not matter. Resolution reads small primitive lists from the cache
// (all, active, per category, per brand, per sort mode) and memoizes the final
// result under a hashed key in the "product:collection" namespace.
//
// The invalidation package evicts these keys when products, offers, brands,
// categories or settings change.
package collection
