package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	"github.com/wolfman30/medassist-ai/internal/kvstore"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// AWSLoader defers SDK configuration until a component actually needs AWS.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// Store backends accepted by STORE_BACKEND.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreDynamo   = "dynamodb"
	StoreS3       = "s3"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildKVStore opens the key-value store named by cfg.StoreBackend. The
// returned close func is never nil.
func BuildKVStore(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (kvstore.Store, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch backend := strings.ToLower(strings.TrimSpace(cfg.StoreBackend)); backend {
	case "", StoreFile:
		store, err := kvstore.OpenFileStore(cfg.StatePath, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using file store", "path", store.Path())
		return store, noop, nil

	case StoreMemory:
		logger.Warn("using in-memory store; state is lost on exit")
		return kvstore.NewMemoryStore(), noop, nil

	case StoreRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, noop, errors.New("bootstrap: redis store requires a reachable REDIS_ADDR")
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr, "namespace", cfg.StoreNamespace)
		return kvstore.NewRedisStore(client, cfg.StoreNamespace), client.Close, nil

	case StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, noop, errors.New("bootstrap: postgres store requires DATABASE_URL")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("using postgres store", "namespace", cfg.StoreNamespace)
		return kvstore.NewPostgresStore(db, cfg.StoreNamespace), db.Close, nil

	case StoreDynamo, "dynamo":
		awsCfg, err := loadAWSConfig(ctx, loadAWS)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using dynamodb store", "table", cfg.DynamoTable, "namespace", cfg.StoreNamespace)
		return kvstore.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.StoreNamespace), noop, nil

	case StoreS3:
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, noop, errors.New("bootstrap: s3 store requires S3_BUCKET")
		}
		awsCfg, err := loadAWSConfig(ctx, loadAWS)
		if err != nil {
			return nil, noop, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		logger.Info("using s3 store", "bucket", cfg.S3Bucket, "namespace", cfg.StoreNamespace)
		return kvstore.NewS3Store(client, cfg.S3Bucket, cfg.StoreNamespace), noop, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown store backend %q", backend)
	}
}

func loadAWSConfig(ctx context.Context, loadAWS AWSLoader) (aws.Config, error) {
	if loadAWS == nil {
		return aws.Config{}, errors.New("bootstrap: aws configuration unavailable")
	}
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return awsCfg, nil
}
