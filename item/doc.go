// Package item resolves cached read projections of catalog records.
//
// A projection is empty (IsEmpty reports true, fields are zero) when the
// record does not exist or is hidden. Empty results are cached like any other
// so repeated misses do not reach the database.
package item
