// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var Migrations embed.FS

// Up applies all pending migrations against the given DSN, creating the
// target schema when it does not exist. The migration SQL is schema-relative;
// it lands wherever search_path points, which keeps TECHHEAL_DB_SCHEMA and
// the migrated schema in agreement.
func Up(ctx context.Context, dsn, schema string) error {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "techheal"
	}

	goose.SetBaseFS(Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", withSearchPath(dsn, schema))
	if err != nil {
		return fmt.Errorf("migrations: open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("migrations: create schema: %w", err)
	}

	if err := goose.UpContext(ctx, db, "sql"); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// withSearchPath pins the connection's search_path to the target schema.
// pgx forwards unknown URL query parameters as runtime parameters. A DSN
// that is not URL-shaped is returned unchanged.
func withSearchPath(dsn, schema string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
