// Package migrations embeds the database schema.
package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed 001_init.up.sql
var InitSQL string

// Apply runs the schema. Every statement is idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, InitSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
