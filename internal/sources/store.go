package sources

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/briefer/config"
)

// Store persists the registry document. Update runs fn inside one
// read-modify-write transaction; when fn reports no change nothing is written.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Update(ctx context.Context, fn func(doc *Document) (bool, error)) error
}

// NewStore builds the store selected by cfg.
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.SourcesPath), nil
	case "redis":
		client, err := Conn(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.Key), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
