package db

import (
	"context"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the diseases and fda_drugs tables when they do not exist
// yet.  It runs inside a single gate scope so a failing statement leaves
// nothing half-applied.
func Migrate(ctx context.Context, g *Gate) error {
	return g.Scope(ctx, func(ctx context.Context, q Querier) error {
		_, err := q.ExecContext(ctx, schemaSQL)
		return err
	})
}
