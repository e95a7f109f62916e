package store

import (
	"context"
	"fmt"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/config"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
)

// Open returns the backend selected by cfg.StoreBackend. channels is only
// used by the channel backend and may be nil otherwise.
func Open(ctx context.Context, cfg *config.Config, channels platform.Channels) (ConfigStore, error) {
	var (
		s   ConfigStore
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendChannel:
		if channels == nil {
			return nil, fmt.Errorf("channel store needs a platform client")
		}
		s = NewChannelStore(channels, cfg.DataChannelID)
	case config.BackendRedis:
		s, err = NewRedisStore(ctx, cfg.RedisURL)
	case config.BackendPostgres:
		s, err = NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendSQLite:
		s, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	return Instrument(s), nil
}
