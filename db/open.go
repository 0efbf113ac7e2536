package db

import (
	"context"
	"fmt"

	"usermanagement/config"
	"usermanagement/db/mongo"
	"usermanagement/db/postgres"
	"usermanagement/db/sqlite"
	"usermanagement/repository"
)

// OpenUserRepository migrates and connects the store selected by
// cfg.DBType. The returned DB is nil for the in-memory store.
func OpenUserRepository(ctx context.Context, cfg *config.Config) (repository.UserRepository, DB, error) {
	if err := RunMigrations(cfg); err != nil {
		return nil, nil, err
	}

	switch cfg.DBType {
	case config.DBPostgres:
		pg := postgres.NewPostgresDB(cfg.PostgresURL)
		if err := pg.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return repository.NewPostgresUserRepo(pg.Conn), pg, nil

	case config.DBSQLite:
		lite := sqlite.NewSQLiteDB(cfg.SQLitePath)
		if err := lite.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect sqlite: %w", err)
		}
		return repository.NewSQLiteUserRepo(lite.Conn), lite, nil

	case config.DBMongo:
		mg := mongo.NewMongoDB(cfg.MongoURL)
		if err := mg.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo, err := repository.NewMongoUserRepo(ctx, mg.Client, cfg.MongoDatabase)
		if err != nil {
			_ = mg.Disconnect(ctx)
			return nil, nil, err
		}
		return repo, mg, nil

	case config.DBMemory:
		return repository.NewMemoryUserRepo(), nil, nil
	}
	return nil, nil, fmt.Errorf("DB_TYPE %q not supported", cfg.DBType)
}
