package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avtreegw/internal/config"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
	"github.com/vyrodovalexey/avtreegw/internal/util"
)

const (
	defaultKeyPrefix = "avtreegw:"
	gatewayKeySuffix = "config:gateway"
	versionKeySuffix = "config:gateway:version"

	pingTimeout = 5 * time.Second
)

// redisStore implements ConfigStore on Redis.
type redisStore struct {
	logger     observability.Logger
	client     redis.UniversalClient
	gatewayKey string
	versionKey string
}

// NewRedisStore creates a ConfigStore backed by Redis. The client mode
// is selected from the configured topology: standalone, sentinel
// failover, or cluster. The connection is verified with a ping before
// the store is returned; all failures surface as StoreError.
func NewRedisStore(cfg *config.DatabaseConfig, logger observability.Logger) (ConfigStore, error) {
	if cfg == nil || cfg.Redis == nil {
		return nil, util.NewStoreError("connect", "", errors.New("redis configuration is required"))
	}

	client, err := newRedisClient(cfg.Redis)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, util.NewStoreError("ping", "", err)
	}

	prefix := defaultKeyPrefix
	if cfg.Redis.Options != nil && cfg.Redis.Options.KeyPrefix != "" {
		prefix = cfg.Redis.Options.KeyPrefix
	}

	s := &redisStore{
		logger:     logger,
		client:     client,
		gatewayKey: prefix + gatewayKeySuffix,
		versionKey: prefix + versionKeySuffix,
	}

	logger.Info("config store connected",
		observability.String("gatewayKey", s.gatewayKey))

	return s, nil
}

// newRedisClient dispatches between standalone, sentinel, and cluster
// client modes based on the configured topology.
func newRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	var (
		password string
		db       int
	)
	if cfg.Options != nil {
		password = cfg.Options.Password
		db = cfg.Options.DB
	}

	switch {
	case len(cfg.Cluster) > 0:
		addrs := make([]string, len(cfg.Cluster))
		for i, node := range cfg.Cluster {
			addrs[i] = node.Addr()
		}
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		}), nil

	case cfg.Sentinel != nil:
		if len(cfg.Sentinel.Nodes) == 0 {
			return nil, util.NewStoreError("connect", "",
				errors.New("at least one sentinel node is required"))
		}
		addrs := make([]string, len(cfg.Sentinel.Nodes))
		for i, node := range cfg.Sentinel.Nodes {
			addrs[i] = node.Addr()
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.Sentinel.Name,
			SentinelAddrs: addrs,
			Password:      password,
			DB:            db,
		}), nil

	case cfg.Standalone != nil:
		opts := &redis.Options{
			Addr:     cfg.Standalone.Addr(),
			Password: password,
			DB:       db,
		}
		if cfg.Standalone.Password != "" {
			opts.Password = cfg.Standalone.Password
		}
		return redis.NewClient(opts), nil

	default:
		return nil, util.NewStoreError("connect", "",
			errors.New("no redis topology configured"))
	}
}

// GetGateway fetches the persisted gateway configuration blob.
func (s *redisStore) GetGateway(ctx context.Context) (map[string]any, error) {
	data, err := s.client.Get(ctx, s.gatewayKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, util.ErrNotFound
		}
		return nil, util.NewStoreError("get", s.gatewayKey, err)
	}

	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, util.NewStoreError("decode", s.gatewayKey, err)
	}
	return raw, nil
}

// SetGateway persists the gateway configuration blob.
func (s *redisStore) SetGateway(ctx context.Context, raw map[string]any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return util.NewStoreError("encode", s.gatewayKey, err)
	}
	if err := s.client.Set(ctx, s.gatewayKey, data, 0).Err(); err != nil {
		return util.NewStoreError("set", s.gatewayKey, err)
	}

	s.logger.Debug("gateway config persisted",
		observability.String("key", s.gatewayKey))
	return nil
}

// Version returns the gateway configuration version marker.
func (s *redisStore) Version(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.versionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", util.ErrNotFound
		}
		return "", util.NewStoreError("get", s.versionKey, err)
	}
	return v, nil
}

// SetVersion registers a version marker for the current configuration
// generation.
func (s *redisStore) SetVersion(ctx context.Context, version string) error {
	if err := s.client.Set(ctx, s.versionKey, version, 0).Err(); err != nil {
		return util.NewStoreError("set", s.versionKey, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *redisStore) Close() error {
	return s.client.Close()
}
