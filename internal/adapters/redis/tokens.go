package redisad

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"frontdesk/internal/domain"
)

// TokenStore keeps the console session under a single key with no expiry;
// the refresh token's own lifetime bounds it.
type TokenStore struct {
	c   *redis.Client
	key string
}

func NewTokenStore(c *redis.Client, user string) *TokenStore {
	return &TokenStore{c: c, key: "frontdesk:session:" + user}
}

func (s *TokenStore) Load(ctx context.Context) (domain.Tokens, error) {
	b, err := s.c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Tokens{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Tokens{}, err
	}
	var t domain.Tokens
	if err := json.Unmarshal(b, &t); err != nil {
		return domain.Tokens{}, err
	}
	return t, nil
}

func (s *TokenStore) Save(ctx context.Context, t domain.Tokens) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, s.key, b, 0).Err()
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.c.Del(ctx, s.key).Err()
}
