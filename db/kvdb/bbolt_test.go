package kvdb

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/meghashyamc/foliosearch/config"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func newTestBoltDB(t *testing.T) *BoltDB {
	t.Helper()
	cfg, err := config.Load("test")
	require.NoError(t, err, "could not load config")
	cfg.Set("KVDB_PATH", filepath.Join(t.TempDir(), "nested", "meta.db"))

	db, err := New(newTestLogger(), cfg)
	require.NoError(t, err, "could not create kv database")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "could not close kv database")
	})
	return db
}

func TestSetGetDelete(t *testing.T) {
	assert := require.New(t)
	db := newTestBoltDB(t)

	assert.NoError(db.Set(RequestsBucket, "request-1", "10"))
	value, err := db.Get(RequestsBucket, "request-1")
	assert.NoError(err)
	assert.Equal("10", value)

	_, err = db.Get(MetadataBucket, "request-1")
	assert.ErrorIs(err, ErrNotFound, "buckets are independent")

	assert.NoError(db.Delete(RequestsBucket, "request-1"))
	_, err = db.Get(RequestsBucket, "request-1")
	var notFoundErr *NotFoundError
	assert.True(errors.As(err, &notFoundErr))
	assert.Equal("request-1", notFoundErr.Key)
}

func TestEmptyKeyIsInvalid(t *testing.T) {
	assert := require.New(t)
	db := newTestBoltDB(t)

	assert.ErrorIs(db.Set(RequestsBucket, "", "x"), ErrInvalidKey)
	_, err := db.Get(RequestsBucket, "")
	assert.ErrorIs(err, ErrInvalidKey)
	assert.ErrorIs(db.Delete(RequestsBucket, ""), ErrInvalidKey)
}

func TestUnknownBucket(t *testing.T) {
	assert := require.New(t)
	db := newTestBoltDB(t)

	assert.Error(db.Set("nope", "key", "value"))
	_, err := db.GetAllKeys("nope")
	assert.Error(err)
}

func TestGetAllKeys(t *testing.T) {
	assert := require.New(t)
	db := newTestBoltDB(t)

	for _, key := range []string{"b", "a", "c"} {
		assert.NoError(db.Set(MetadataBucket, key, "v"))
	}

	keys, err := db.GetAllKeys(MetadataBucket)
	assert.NoError(err)
	assert.Equal([]string{"a", "b", "c"}, keys)
}

func TestMissingPath(t *testing.T) {
	assert := require.New(t)
	cfg, err := config.Load("test")
	assert.NoError(err)
	cfg.Set("KVDB_PATH", "")
	cfg.Set("database.kvdb_path", "")

	_, err = New(newTestLogger(), cfg)
	assert.Error(err)
}
