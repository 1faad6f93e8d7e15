package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date with the embedded migrations.
// goose works on database/sql, so it gets its own short lived lib/pq connection.
func Migrate(ctx context.Context, connString string) (err error) {
	sqlDB, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("open migrations db: %w", err)
	}
	defer func() {
		if closeErr := sqlDB.Close(); closeErr != nil {
			log.Errorf("close migrations db: %s", closeErr)
		}
	}()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrationsFS())
	if err != nil {
		return fmt.Errorf("new goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Infof("migration applied: %s (%s)", r.Source.Path, r.Duration)
	}
	return nil
}

// Version returns the current schema version
func Version(ctx context.Context, connString string) (int64, error) {
	sqlDB, err := sql.Open("postgres", connString)
	if err != nil {
		return 0, fmt.Errorf("open migrations db: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrationsFS())
	if err != nil {
		return 0, fmt.Errorf("new goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

func migrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
