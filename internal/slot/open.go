package slot

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/migrate"
	"github.com/angelmondragon/cartsync/pkg/redis"
	"go.uber.org/multierr"
)

// Open builds the configured backend. The returned closer releases its connections.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), func() error { return nil }, nil

	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis slot: %w", err)
		}
		return NewRedisStore(client), client.Close, nil

	case config.BackendSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap sql slot: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg.DB, logg, client); err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return NewSQLStore(client.DB()), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
