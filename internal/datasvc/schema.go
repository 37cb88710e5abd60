package datasvc

import (
	"context"
	_ "embed"
	"fmt"
)

// SchemaSQL creates the tables served by PostgresStore. Statements are
// idempotent.
//
//go:embed schema.sql
var SchemaSQL string

// ApplySchema runs SchemaSQL against db.
func ApplySchema(ctx context.Context, db PgxPool) error {
	if _, err := db.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
