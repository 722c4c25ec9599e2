// Package repository opens the configured storage adapter.
package repository

import (
	"context"
	"fmt"

	"github.com/thenorthsolution/djs-utils/internal/common/config"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/platform/db"
	platformmongo "github.com/thenorthsolution/djs-utils/internal/platform/mongo"
	platformredis "github.com/thenorthsolution/djs-utils/internal/platform/redis"
	"github.com/thenorthsolution/djs-utils/internal/repository/jsonfile"
	"github.com/thenorthsolution/djs-utils/internal/repository/mongo"
	"github.com/thenorthsolution/djs-utils/internal/repository/redis"
	"github.com/thenorthsolution/djs-utils/internal/repository/sqlstore"
)

// Open connects the backend named by cfg.Driver and starts it. The caller
// owns the returned adapter and must Close it.
func Open(ctx context.Context, cfg config.Storage) (dg.Adapter, error) {
	var adapter dg.Adapter

	switch cfg.Driver {
	case config.DriverJSON:
		adapter = jsonfile.New(cfg.JSONFile)
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		adapter = sqlstore.New(conn, sqlstore.DefaultTables())
	case config.DriverPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		adapter = sqlstore.New(conn, sqlstore.DefaultTables())
	case config.DriverMongoDB:
		client, err := platformmongo.Open(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("open mongodb: %w", err)
		}
		adapter = mongo.New(client, cfg.MongoDatabase, mongo.Collections{})
	case config.DriverRedis:
		client, err := platformredis.Open(ctx, platformredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		adapter = redis.New(client, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if err := adapter.Start(ctx); err != nil {
		_ = adapter.Close()
		return nil, err
	}
	return adapter, nil
}
