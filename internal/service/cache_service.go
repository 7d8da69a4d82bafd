package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheServiceParams groups constructor dependencies.
type CacheServiceParams struct {
	Repo    CacheRepository
	Metrics *MetricsService
	Logger  *zap.Logger
	// Namespace prefixes every key so deployments sharing a Redis do not collide.
	Namespace  string
	DefaultTTL time.Duration
	Enabled    bool
}

// CacheService shares derived payloads between instances. Failures degrade
// to misses; callers always have the in-process value to fall back on.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	logger     *zap.Logger
	namespace  string
	defaultTTL time.Duration
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(params CacheServiceParams) *CacheService {
	ttl := params.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:       params.Repo,
		metrics:    params.Metrics,
		logger:     logger,
		namespace:  params.Namespace,
		defaultTTL: ttl,
		enabled:    params.Enabled,
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func (s *CacheService) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

// Get loads a cached entry into dest and reports a hit. Repository errors
// are logged and returned alongside a miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores the value. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes the entries matching a glob pattern within the namespace.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, s.key(pattern)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
