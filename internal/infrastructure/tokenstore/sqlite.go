package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
)

// credentialRecord is the single-row table backing the sqlite driver
type credentialRecord struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (credentialRecord) TableName() string { return "console_credentials" }

type sqliteStore struct {
	db    *gorm.DB
	key   string
	owned bool
}

// OpenSQLite opens (creating if needed) the database file at path
func OpenSQLite(path, key string, log *zap.Logger) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite token store requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create token store dir: %w", err)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.GormLevel("warn")),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s, err := NewSQLite(db, key)
	if err != nil {
		return nil, err
	}
	s.(*sqliteStore).owned = true
	return s, nil
}

// NewSQLite uses an existing gorm handle, migrating the credential table
func NewSQLite(db *gorm.DB, key string) (Store, error) {
	if db == nil {
		return nil, errors.New("sqlite token store requires database handle")
	}
	if key == "" {
		return nil, errors.New("sqlite token store requires a key")
	}
	if err := db.AutoMigrate(&credentialRecord{}); err != nil {
		return nil, fmt.Errorf("migrate credential table: %w", err)
	}
	return &sqliteStore{db: db, key: key}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (session.Credential, error) {
	var rec credentialRecord
	err := s.db.WithContext(ctx).Where("name = ?", s.key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Credential{}, ErrNotFound
	}
	if err != nil {
		return session.Credential{}, err
	}
	return decode(rec.Value)
}

func (s *sqliteStore) Save(ctx context.Context, cred session.Credential) error {
	raw, err := encode(cred)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", s.key).Delete(&credentialRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&credentialRecord{Name: s.key, Value: raw}).Error
	})
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("name = ?", s.key).Delete(&credentialRecord{}).Error
}

func (s *sqliteStore) Close() error {
	if !s.owned {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
