package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/querykit/tokenstore"
)

// TokenStore implements tokenstore.Store on Redis.
type TokenStore struct {
	client *Client
	prefix string
}

var _ tokenstore.Store = (*TokenStore)(nil)

// NewTokenStore creates a store that keeps values under the client's key
// prefix.
func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{client: client, prefix: client.cfg.KeyPrefix}
}

func (s *TokenStore) key(k string) string { return s.prefix + k }

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key))
	if errors.Is(err, goredis.Nil) {
		return "", tokenstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.client.cfg.TokenTTL); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
