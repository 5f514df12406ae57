// Package app builds the shared dependencies of the server and the admin CLI
// from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"petsoft/internal/cache"
	"petsoft/internal/config"
	"petsoft/internal/repository"
	"petsoft/internal/repository/postgres"
	"petsoft/internal/repository/sqlite"
	"petsoft/internal/storage"
)

// NewLogger returns a logrus logger configured from cfg.Log.
func NewLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Repositories groups the persistence layer.
type Repositories struct {
	DB    *sql.DB
	Users repository.UserRepository
	Pets  repository.PetRepository
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

// OpenRepositories opens the configured database and creates missing tables.
func OpenRepositories(ctx context.Context, cfg config.Config) (*Repositories, error) {
	var (
		repos Repositories
		err   error
	)
	switch cfg.Database.Driver {
	case "postgres":
		repos.DB, err = postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repos.Users = postgres.NewUserRepository(repos.DB)
		repos.Pets = postgres.NewPetRepository(repos.DB)
	case "sqlite", "":
		repos.DB, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		repos.Users = sqlite.NewUserRepository(repos.DB)
		repos.Pets = sqlite.NewPetRepository(repos.DB)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	// users first: pets reference them
	if err := repos.Users.Init(ctx); err != nil {
		_ = repos.DB.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := repos.Pets.Init(ctx); err != nil {
		_ = repos.DB.Close()
		return nil, fmt.Errorf("init pet repository: %w", err)
	}
	return &repos, nil
}

// NewCacheStore connects to Redis when configured and falls back to memory.
// The returned close func is never nil.
func NewCacheStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (cache.Store, func() error, error) {
	if cfg.Cache.RedisAddr == "" {
		logger.Info("using in-memory session and pet list cache")
		return cache.NewMemoryStore(), func() error { return nil }, nil
	}
	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   "petsoft:",
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("using redis cache at %s", cfg.Cache.RedisAddr)
	return store, store.Close, nil
}

// NewImageStore returns nil without error when no bucket is configured.
func NewImageStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.ImageStore, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("storage bucket not set, image uploads disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	svc, err := storage.NewS3Service(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		Region:        cfg.Storage.Region,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
