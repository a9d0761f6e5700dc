package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/blobstore/minio"
	s3store "github.com/hupe1980/wah/blobstore/s3"
)

var (
	memMu     sync.Mutex
	memStores = map[string]*blobstore.MemoryStore{}
)

// memStore returns the process-wide memory store called name.
func memStore(name string) *blobstore.MemoryStore {
	memMu.Lock()
	defer memMu.Unlock()

	s, ok := memStores[name]
	if !ok {
		s = blobstore.NewMemoryStore()
		memStores[name] = s
	}

	return s
}

// openStore resolves the --store URL. A value without a scheme is a local
// directory.
func openStore(ctx context.Context, cfg Config) (blobstore.BlobStore, error) {
	if !strings.Contains(cfg.Store, "://") {
		return blobstore.NewLocalStore(cfg.Store), nil
	}

	u, err := url.Parse(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL %q: %w", cfg.Store, err)
	}

	if cfg.DDBTable != "" && u.Scheme != "s3" {
		return nil, fmt.Errorf("--ddb-table requires an s3:// store, got %q", cfg.Store)
	}

	switch u.Scheme {
	case "file":
		dir, _ := strings.CutPrefix(cfg.Store, "file://")
		if dir == "" {
			return nil, fmt.Errorf("empty directory in store URL %q", cfg.Store)
		}

		return blobstore.NewLocalStore(dir), nil
	case "mem":
		return memStore(u.Host), nil
	case "s3":
		return openS3(ctx, cfg, u)
	case "minio":
		return openMinIO(cfg, u)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

func openS3(ctx context.Context, cfg Config, u *url.URL) (blobstore.BlobStore, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("missing bucket in store URL %q", cfg.Store)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	var store blobstore.BlobStore = s3store.NewStore(client, u.Host, strings.Trim(u.Path, "/"))

	if cfg.DDBTable != "" {
		ddb := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})

		store = s3store.NewDDBCommitStore(store, ddb, cfg.DDBTable, cfg.Store)
	}

	return store, nil
}

func openMinIO(cfg Config, u *url.URL) (blobstore.BlobStore, error) {
	bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || bucket == "" {
		return nil, fmt.Errorf("store URL %q must look like minio://HOST/BUCKET/PREFIX", cfg.Store)
	}

	client, err := miniogo.New(u.Host, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}

	return minio.NewStore(client, bucket, prefix), nil
}
