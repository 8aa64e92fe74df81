package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sparknexora/backoffice/internal/domain/session"
)

// RedisOptions selects the server and key the credential lives under
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Key      string
}

type redisStore struct {
	client *redis.Client
	key    string
}

// NewRedis connects and pings the server before returning
func NewRedis(opts RedisOptions) (Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address required")
	}
	if opts.Key == "" {
		return nil, errors.New("redis token store requires a key")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &redisStore{client: client, key: opts.Prefix + opts.Key}, nil
}

func (s *redisStore) Load(ctx context.Context) (session.Credential, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Credential{}, ErrNotFound
	}
	if err != nil {
		return session.Credential{}, err
	}
	return decode(raw)
}

// Save writes without expiry; the credential lives until logout
func (s *redisStore) Save(ctx context.Context, cred session.Credential) error {
	raw, err := encode(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, 0).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
