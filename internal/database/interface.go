package database

import "context"

// DB is the read-only catalog contract every driver implements.
// Callers above this package never import the postgres or mysql packages
// directly except to construct a driver.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// ListTables returns all base tables of the configured schema, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether a base table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// InspectSchema returns the structure of the given tables, in the order
	// given. An empty list means every table from ListTables.
	InspectSchema(ctx context.Context, tables ...string) (*Schema, error)
}
