package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"usermanagement/config"
	"usermanagement/db/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the SQL stores. It uses its
// own connection and closes it when done.
func RunMigrations(cfg *config.Config) error {
	var driverName, dsn string
	switch cfg.DBType {
	case config.DBPostgres:
		driverName, dsn = "postgres", cfg.PostgresURL
	case config.DBSQLite:
		driverName, dsn = "sqlite3", sqlite.DSN(cfg.SQLitePath)
	default:
		return nil
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", driverName, err)
	}

	var driver database.Driver
	switch driverName {
	case "postgres":
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not start %s migration driver: %w", driverName, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		driver.Close()
		return fmt.Errorf("could not read migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("migration failed to start: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run up migrations: %w", err)
	}
	return nil
}
