package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/briefer/config"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 8

// Conn dials redis and verifies the connection with PING.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

// RedisStore keeps the document as one JSON value. Updates are optimistic
// WATCH/MULTI transactions retried on conflict.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "briefer:sources"
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (Document, error) {
	return r.get(ctx, r.client)
}

func (r *RedisStore) Update(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	txf := func(tx *redis.Tx) error {
		doc, err := r.get(ctx, tx)
		if err != nil {
			return err
		}
		changed, err := fn(&doc)
		if err != nil || !changed {
			return err
		}
		data, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too many concurrent writers", r.key)
}

func (r *RedisStore) get(ctx context.Context, c redis.Cmdable) (Document, error) {
	raw, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{Sources: []Source{}}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", r.key, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", r.key, err)
	}
	if doc.Sources == nil {
		doc.Sources = []Source{}
	}
	return doc, nil
}
