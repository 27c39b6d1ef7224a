// Package postgres provides the PostgreSQL implementation of the history
// store defined in internal/store, the embedded goose migrations that create
// its schema, and helpers that map driver errors onto store errors.
package postgres
