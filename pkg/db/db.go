// Package db defines the contract for low-level warehouse database
// operations. The implementation lives in internal/iodb.
package db

import (
	"context"

	"github.com/barriodata/bcndb/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Operator provides connection management and table-level operations
// against the PostgreSQL warehouse.
type Operator interface {
	// Connect establishes a connection pool to PostgreSQL.
	Connect(ctx context.Context, cfg *config.DatabaseConfig) error

	// Close releases all database connections.
	Close() error

	// Pool returns the underlying pgxpool.Pool for advanced operations.
	Pool() *pgxpool.Pool

	// TableExists checks if a table exists in the current database.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// HasTables checks if the database has any tables in the public schema.
	HasTables(ctx context.Context) (bool, error)

	// DropAllTables drops all tables in the public schema.
	DropAllTables(ctx context.Context) error
}
