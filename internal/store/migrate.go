package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies all pending schema migrations using the given pool.
// It returns true when at least one migration ran.
func Migrate(pool *pgxpool.Pool) (bool, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return false, fmt.Errorf("open migration source: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return false, fmt.Errorf("open migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return false, errors.Join(fmt.Errorf("init migrations: %w", err), driver.Close(), source.Close())
	}
	return applyMigrations(m)
}

// migrator is the part of *migrate.Migrate that applyMigrations drives.
type migrator interface {
	Up() error
	Close() (source error, database error)
}

// applyMigrations runs m.Up and always closes m, which returns the
// connection the database driver holds to the pool.
func applyMigrations(m migrator) (applied bool, err error) {
	defer func() {
		sourceErr, dbErr := m.Close()
		if closeErr := errors.Join(sourceErr, dbErr); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close migrations: %w", closeErr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("apply migrations: %w", err)
	}
	return true, nil
}
