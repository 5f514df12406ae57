package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsoft/internal/cache"
	"petsoft/internal/config"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewLogger(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	logger := NewLogger(cfg)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Log.Level = "loud"
	cfg.Log.Format = "text"
	logger = NewLogger(cfg)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestOpenRepositoriesSQLite(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "petsoft.db")

	repos, err := OpenRepositories(context.Background(), cfg)
	require.NoError(t, err)
	defer repos.Close()

	_, err = repos.Pets.ListByOwner(context.Background(), "nobody")
	assert.NoError(t, err)
}

func TestOpenRepositoriesUnknownDriver(t *testing.T) {
	var cfg config.Config
	cfg.Database.Driver = "oracle"
	_, err := OpenRepositories(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOptionalIntegrations(t *testing.T) {
	var cfg config.Config

	store, closeFn, err := NewCacheStore(context.Background(), cfg, quiet())
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, store)
	assert.NoError(t, closeFn())

	images, err := NewImageStore(context.Background(), cfg, quiet())
	require.NoError(t, err)
	assert.Nil(t, images)
}
