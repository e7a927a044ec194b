package store

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jobtracker/app/config"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/store/filesystem"
	mongorepo "jobtracker/internal/infrastructure/store/mongodb"
	redisrepo "jobtracker/internal/infrastructure/store/redis"
	"jobtracker/internal/infrastructure/store/sqlite"
)

// CloseFunc releases whatever connection the backend holds.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// Open builds the repository selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (repository.JobRepository, CloseFunc, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		repo, err := filesystem.NewJobRepository(cfg.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init file repo: %w", err)
		}
		logger.Info("using file repository", "path", repo.Path())
		return repo, noopClose, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		logger.Info("connected to mongo", "uri", cfg.Mongo.URI, "db", cfg.Mongo.Database)
		repo := mongorepo.NewMongoJobRepo(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection, "")
		return repo, client.Disconnect, nil

	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite repository", "path", cfg.SQLite.Path)
		return repo, func(context.Context) error { return repo.Close() }, nil

	case config.BackendRedis:
		repo := redisrepo.NewRedisJobRepo(goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Key)
		if err := repo.Ping(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		return repo, func(context.Context) error { return repo.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
