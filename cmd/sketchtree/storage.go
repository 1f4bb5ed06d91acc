package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/blobstore"
	miniostore "github.com/hupe1980/sketchtree/blobstore/minio"
	s3store "github.com/hupe1980/sketchtree/blobstore/s3"
	"github.com/hupe1980/sketchtree/blobstore/sqlite"
	"github.com/hupe1980/sketchtree/internal/config"
	"github.com/hupe1980/sketchtree/sbt"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func noopClose() error { return nil }

// openStore builds the configured blob store for a tree whose descriptor
// lives in dir. A nil store means the tree's own default, files next to the
// descriptor. The returned func releases the store.
func openStore(ctx context.Context, cfg config.StorageConfig, dir string) (blobstore.Store, func() error, error) {
	var (
		store   blobstore.Store
		closeFn = noopClose
	)

	switch cfg.Backend {
	case config.BackendLocal:
		if cfg.CacheSize == 0 && cfg.ThrottleBytesPerSec == 0 && !cfg.ContentAddressed {
			return nil, noopClose, nil
		}
		store = blobstore.NewLocalStore(dir)

	case config.BackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		if cfg.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				awscreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		store = s3store.NewStore(client, cfg.Bucket, cfg.Prefix)

	case config.BackendMinIO:
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create minio client: %w", err)
		}
		store = miniostore.NewStore(client, cfg.Bucket, cfg.Prefix)

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = db, db.Close

	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	if cfg.ContentAddressed {
		store = blobstore.NewContentAddressedStore(store)
	}
	if cfg.ThrottleBytesPerSec > 0 {
		store = blobstore.NewThrottledStore(store, cfg.ThrottleBytesPerSec)
	}
	if cfg.CacheSize > 0 {
		cs, err := blobstore.NewCachingStore(store, cfg.CacheSize)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		store = cs
	}
	return store, closeFn, nil
}

// loadTree opens the configured store and loads the tree at path from it.
func (a *app) loadTree(ctx context.Context, path string, extra ...sketchtree.Option) (*sbt.Tree, func() error, error) {
	store, closeFn, err := openStore(ctx, a.cfg.Storage, filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}

	opts := []sketchtree.Option{
		sketchtree.WithLogger(a.logger),
		sketchtree.WithCacheSize(a.cfg.Index.CacheSize),
	}
	if store != nil {
		opts = append(opts, sketchtree.WithStorage(store))
	}

	tree, err := sketchtree.LoadIndex(ctx, path, append(opts, extra...)...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return tree, closeFn, nil
}
