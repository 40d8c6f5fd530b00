package database

import (
	"context"
	"fmt"

	"chat-client/internal/config"
)

// Open builds the SlotStore selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (SlotStore, error) {
	switch cfg.Driver {
	case "bolt", "":
		return NewBoltStore(cfg.Path, cfg.Profile)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Profile)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, cfg.Profile)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
