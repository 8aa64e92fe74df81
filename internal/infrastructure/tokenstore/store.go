// Package tokenstore persists the console credential between restarts.
// Exactly one value is kept, under a well-known key.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/config"
)

// Driver identifiers accepted by New
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var (
	// ErrNotFound means no credential is stored
	ErrNotFound = errors.New("no stored credential")
	// ErrCorrupt means a stored value exists but cannot be decoded
	ErrCorrupt = errors.New("stored credential is corrupt")
)

// Store is the durable home of the credential
type Store interface {
	Load(ctx context.Context) (session.Credential, error)
	Save(ctx context.Context, cred session.Credential) error
	Clear(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver
func New(cfg config.TokenStoreConfig, redisCfg config.RedisConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFile(cfg.Path, cfg.Key)
	case DriverSQLite:
		return OpenSQLite(cfg.Path, cfg.Key, log)
	case DriverRedis:
		return NewRedis(RedisOptions{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
			Key:      cfg.Key,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported token store driver: %s", cfg.Driver)
	}
}

func encode(cred session.Credential) ([]byte, error) {
	return json.Marshal(cred)
}

func decode(raw []byte) (session.Credential, error) {
	var cred session.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return session.Credential{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if cred.Token == "" {
		return session.Credential{}, fmt.Errorf("%w: empty token", ErrCorrupt)
	}
	return cred, nil
}
