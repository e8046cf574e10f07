package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	appconfig "github.com/wolfman30/healthylife-gp-assistant/internal/config"
	"github.com/wolfman30/healthylife-gp-assistant/internal/conversation"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// AWSConfigLoader resolves AWS SDK configuration on demand.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

var errRedisRequired = errors.New("bootstrap: redis client is required")

// NeedsRedis reports whether any configured store lives in Redis.
func NeedsRedis(cfg *appconfig.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.AppointmentStore == appconfig.StoreRedis || cfg.SessionStore == appconfig.StoreRedis
}

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
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks where conversation sessions live.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client) (conversation.SessionStore, error) {
	switch cfg.SessionStore {
	case "", appconfig.StoreMemory:
		return conversation.NewMemorySessionStore(), nil
	case appconfig.StoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%w for the redis session store", errRedisRequired)
		}
		return conversation.NewRedisSessionStore(redisClient, nil), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown session store %q", cfg.SessionStore)
	}
}

// BuildAppointmentStore opens the configured appointment backend. The returned
// cleanup releases backend resources and is never nil.
func BuildAppointmentStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, loadAWS AWSConfigLoader, logger *logging.Logger) (appointments.Store, func(), error) {
	noop := func() {}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.AppointmentStore {
	case "", appconfig.StoreMemory:
		logger.Warn("appointments are kept in memory and will not survive a restart")
		return appointments.NewMemoryStore(), noop, nil

	case appconfig.StoreRedis:
		if redisClient == nil {
			return nil, noop, fmt.Errorf("%w for the redis appointment store", errRedisRequired)
		}
		blob := appointments.NewRedisBlob(redisClient, cfg.AppointmentStoreKey)
		logger.Info("appointment store ready", "backend", "redis", "key", cfg.AppointmentStoreKey)
		return appointments.NewBlobStore(blob, nil), noop, nil

	case appconfig.StoreDynamoDB:
		if loadAWS == nil {
			return nil, noop, errors.New("bootstrap: aws config loader is required for the dynamodb store")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		blob := appointments.NewDynamoBlob(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.AppointmentStoreKey)
		logger.Info("appointment store ready", "backend", "dynamodb", "table", cfg.DynamoDBTable)
		return appointments.NewBlobStore(blob, nil), noop, nil

	case appconfig.StoreS3:
		if loadAWS == nil {
			return nil, noop, errors.New("bootstrap: aws config loader is required for the s3 store")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		// Emulators serve buckets by path, not by virtual host.
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		blob := appointments.NewS3Blob(client, cfg.S3Bucket, cfg.AppointmentStoreKey)
		logger.Info("appointment store ready", "backend", "s3", "bucket", cfg.S3Bucket)
		return appointments.NewBlobStore(blob, nil), noop, nil

	case appconfig.StorePostgres:
		pool, err := connectPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("appointment store ready", "backend", "postgres")
		return appointments.NewPostgresStore(pool), pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown appointment store %q", cfg.AppointmentStore)
	}
}

func connectPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("bootstrap: database url is required for the postgres store")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}
