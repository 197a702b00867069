package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/observability"
)

// ProviderStore is a provider repository that also answers free-text lookups
type ProviderStore interface {
	repositories.ProviderRepository
	repositories.ProviderSearchRepository
}

// CachedProviderAdapter wraps a ProviderStore with read-through caching.
// Cache faults are logged and never fail a call. Search keys embed a
// generation stored in the cache itself; every write replaces it, so cached
// lookups from any instance sharing the cache stop being served.
type CachedProviderAdapter struct {
	adapter ProviderStore
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedProviderAdapter creates a new cached provider adapter. metrics may be nil.
func NewCachedProviderAdapter(adapter ProviderStore, cache providers.CacheProvider, metrics *observability.Metrics) *CachedProviderAdapter {
	return &CachedProviderAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Cache TTLs
const (
	providerByIDTTL  = 5 * time.Minute
	searchResultsTTL = 2 * time.Minute
)

func providerCacheKey(id string) string {
	return fmt.Sprintf("provider:%s", id)
}

const searchGenerationKey = "providers:search:generation"

func providersSearchCacheKey(generation, term string, limit int) string {
	return fmt.Sprintf("providers:search:%s:%d:%s", generation, limit, term)
}

// GetByID retrieves a provider by ID with caching
func (a *CachedProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	cacheKey := providerCacheKey(id)

	var provider entities.Provider
	if a.load(ctx, cacheKey, &provider) {
		return &provider, nil
	}

	fetched, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(ctx, cacheKey, fetched, providerByIDTTL)
	return fetched, nil
}

// SearchText runs a free-text lookup with caching
func (a *CachedProviderAdapter) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	generation, ok := a.searchGeneration(ctx)
	if !ok {
		return a.adapter.SearchText(ctx, term, limit)
	}
	cacheKey := providersSearchCacheKey(generation, term, limit)

	var cached []*entities.Provider
	if a.load(ctx, cacheKey, &cached) {
		return cached, nil
	}

	results, err := a.adapter.SearchText(ctx, term, limit)
	if err != nil {
		return nil, err
	}

	a.store(ctx, cacheKey, results, searchResultsTTL)
	return results, nil
}

// List is not cached; admin listings must reflect writes immediately
func (a *CachedProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	return a.adapter.List(ctx, filter)
}

// Create creates a provider and drops cached lookups
func (a *CachedProviderAdapter) Create(ctx context.Context, provider *entities.Provider) error {
	if err := a.adapter.Create(ctx, provider); err != nil {
		return err
	}
	a.invalidateSearches(ctx)
	return nil
}

// Update updates a provider, evicts its cached copy and drops cached lookups
func (a *CachedProviderAdapter) Update(ctx context.Context, provider *entities.Provider) error {
	if err := a.adapter.Update(ctx, provider); err != nil {
		return err
	}
	a.evict(ctx, providerCacheKey(provider.ID))
	a.invalidateSearches(ctx)
	return nil
}

// Delete deletes a provider, evicts its cached copy and drops cached lookups
func (a *CachedProviderAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.evict(ctx, providerCacheKey(id))
	a.invalidateSearches(ctx)
	return nil
}

func (a *CachedProviderAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	logger := observability.LoggerFromContext(ctx)

	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		observability.RecordCacheMiss(ctx, a.metrics, key)
		return false
	}

	if err := json.Unmarshal(cached, dest); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		observability.RecordCacheMiss(ctx, a.metrics, key)
		return false
	}

	observability.RecordCacheHit(ctx, a.metrics, key)
	return true
}

func (a *CachedProviderAdapter) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to write cache")
	}
}

func (a *CachedProviderAdapter) evict(ctx context.Context, key string) {
	if err := a.cache.Delete(ctx, key); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to invalidate cache")
	}
}

// searchGeneration reports the current search generation. ok is false when the
// cache cannot be read, in which case lookups bypass it.
func (a *CachedProviderAdapter) searchGeneration(ctx context.Context) (string, bool) {
	value, err := a.cache.Get(ctx, searchGenerationKey)
	switch {
	case err == nil:
		return string(value), true
	case errors.Is(err, providers.ErrCacheMiss):
		return "0", true
	default:
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to read search cache generation")
		return "", false
	}
}

func (a *CachedProviderAdapter) invalidateSearches(ctx context.Context) {
	if err := a.cache.Set(ctx, searchGenerationKey, []byte(uuid.NewString()), 0); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to invalidate search cache")
	}
}
