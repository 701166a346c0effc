// Package app wires configuration into running components: the document
// store backend, the shared Redis client and the HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nexabuild/go-services/internal/config"
	"github.com/nexabuild/go-services/internal/database"
	"github.com/nexabuild/go-services/internal/document/repository"
	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store is an opened document store backend.
type Store struct {
	Repo   repository.Repository
	Driver string // backend actually in use; "memory" after a fallback
	close  func()
}

// Close releases the backend's connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore connects the backend named by STORE_DRIVER. rdb is the shared
// Redis client and may be nil unless the driver is redis. A backend that
// cannot be reached is replaced by the in-memory store so the app stays
// usable; Driver reports the fallback.
func OpenStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) *Store {
	s, err := openStore(ctx, cfg, rdb)
	if err != nil {
		logger.Warnf("document store %q unavailable (%v); using memory-backed repo", cfg.Store.Driver, err)
		return &Store{Repo: repository.NewMemoryRepo(), Driver: "memory"}
	}
	logger.Infof("document store: %s", s.Driver)
	return s
}

func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return &Store{Repo: repository.NewMemoryRepo(), Driver: "memory"}, nil

	case "sqlite":
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewSQLiteRepo(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{Repo: repo, Driver: "sqlite", close: func() { _ = db.Close() }}, nil

	case "postgres":
		db, err := database.OpenPostgres(ctx, cfg.Store.PostgresDSN, cfg.Server.ReadTimeout)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewPostgresRepo(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{Repo: repo, Driver: "postgres", close: func() { _ = db.Close() }}, nil

	case "mongo":
		client, err := connectMongo(ctx, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		repo, err := repository.NewMongoRepo(ctx, col)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &Store{Repo: repo, Driver: "mongo", close: func() { _ = client.Disconnect(context.Background()) }}, nil

	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis client not connected")
		}
		return &Store{Repo: repository.NewRedisRepo(rdb, cfg.Redis.Prefix), Driver: "redis"}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// connectMongo retries with backoff to tolerate startup races with the database container.
func connectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var errConn error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			return client, nil
		}
		errConn = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, errConn)
}

// ConnectRedis returns nil when Redis is not configured or not reachable.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	addr := cfg.Addr()
	if addr == "" {
		return nil
	}
	client, err := database.ConnectRedis(ctx, addr, cfg.Password, cfg.DB, 5*time.Second)
	if err != nil {
		logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		return nil
	}
	logger.Infof("Connected to Redis: %s", addr)
	return client
}
