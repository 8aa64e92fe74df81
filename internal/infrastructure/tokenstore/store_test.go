package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparknexora/backoffice/internal/domain/session"
	"github.com/sparknexora/backoffice/internal/infrastructure/config"
)

func testCredential(token string) session.Credential {
	return session.Credential{
		Token:    token,
		Identity: session.Identity{Subject: "admin-1", Email: "ops@sparknexora.com", Name: "Ops"},
		IssuedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// exerciseStore runs the lifecycle every driver must honour
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound, "empty store")

	require.NoError(t, s.Save(ctx, testCredential("tok-1")))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testCredential("tok-1"), got)

	require.NoError(t, s.Save(ctx, testCredential("tok-2")), "save overwrites")
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.Token)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Clear(ctx), "clearing an empty store is a no-op")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "credential.json")
	s, err := NewFile(path, "authToken")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_PermissionsAndSharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))

	s, err := NewFile(path, "authToken")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testCredential("tok")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(data), "other keys survive a clear")
}

func TestFileStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credential.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	s, err := NewFile(path, "authToken")
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credential.json")

	first, err := NewFile(path, "authToken")
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, testCredential("tok")))

	second, err := NewFile(path, "authToken")
	require.NoError(t, err)
	got, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(RedisOptions{Addr: mr.Addr(), Prefix: "backoffice:", Key: "authToken"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	require.NoError(t, s.Save(context.Background(), testCredential("tok")))
	assert.True(t, mr.Exists("backoffice:authToken"))
	assert.Zero(t, mr.TTL("backoffice:authToken"), "credential has no expiry")
}

func TestRedisStore_Corrupt(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("authToken", "garbage"))

	s, err := NewRedis(RedisOptions{Addr: mr.Addr(), Key: "authToken"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(RedisOptions{Addr: addr, Key: "authToken"})
	assert.Error(t, err)
}

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tokenstore-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(newTestSQLiteDB(t), "authToken")
	require.NoError(t, err)
	exerciseStore(t, s)
	assert.NoError(t, s.Close(), "borrowed handle is left open")
}

func TestOpenSQLite_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "console.db")

	s, err := OpenSQLite(path, "authToken", nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testCredential("tok")))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path, "authToken", nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
}

func TestNew_Factory(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := New(config.TokenStoreConfig{Driver: DriverMemory, Key: "authToken"}, config.RedisConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &memoryStore{}, s)
	})

	t.Run("file", func(t *testing.T) {
		s, err := New(config.TokenStoreConfig{
			Driver: DriverFile,
			Path:   filepath.Join(t.TempDir(), "c.json"),
			Key:    "authToken",
		}, config.RedisConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &fileStore{}, s)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := New(config.TokenStoreConfig{Driver: DriverRedis, Key: "authToken"},
			config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr.Port())}, nil)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &redisStore{}, s)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := New(config.TokenStoreConfig{Driver: "etcd"}, config.RedisConfig{}, nil)
		assert.ErrorContains(t, err, "unsupported token store driver")
	})
}

func mustPort(t *testing.T, s string) int {
	t.Helper()
	var p int
	_, err := fmt.Sscanf(s, "%d", &p)
	require.NoError(t, err)
	return p
}
