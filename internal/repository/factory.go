package repository

import (
	"context"
	"fmt"

	"github.com/stridekart/shoe-store-api/internal/config"
)

// NewStore builds the Store named by the configured driver.
func NewStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewSeededMemoryStore(), nil
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}
}
