// Package store implements the domain store interfaces on PostgreSQL
// via pgx. The embedded SQLite variant lives in store/sqlite.
package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")
