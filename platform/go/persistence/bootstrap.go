package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/wundergunder/gunderats/database"
)

// Bootstrap applies the embedded schema DDL. Statements are idempotent
// (CREATE ... IF NOT EXISTS) so running it against an existing database is safe.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	statements := splitStatements(sqlassets.ATSSchemaSQL)

	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema statement: %w", err)
			}
		}
		return nil
	})
}

func splitStatements(ddl string) []string {
	rawStatements := strings.Split(ddl, ";")
	statements := make([]string, 0, len(rawStatements))
	for _, raw := range rawStatements {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
