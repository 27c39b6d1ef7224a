// Package store defines the persistence contracts for history records and
// the small set of database helpers shared by their implementations.
package store
