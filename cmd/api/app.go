package main

import (
	"context"
	"fmt"

	"github.com/medicapp/backend/internal/adapters/cache"
	"github.com/medicapp/backend/internal/adapters/database"
	"github.com/medicapp/backend/internal/adapters/events"
	"github.com/medicapp/backend/internal/adapters/search"
	"github.com/medicapp/backend/internal/adapters/session"
	"github.com/medicapp/backend/internal/api/handlers"
	"github.com/medicapp/backend/internal/api/middleware"
	"github.com/medicapp/backend/internal/api/routes"
	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/clients/openai"
	"github.com/medicapp/backend/internal/infrastructure/clients/postgres"
	"github.com/medicapp/backend/internal/infrastructure/clients/redis"
	"github.com/medicapp/backend/internal/infrastructure/clients/typesense"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	"github.com/medicapp/backend/pkg/config"
)

type appOptions struct {
	metrics *observability.Metrics
	migrate bool
}

// app holds the wired dependency graph shared by the commands
type app struct {
	cfg     *config.Config
	metrics *observability.Metrics

	pgClient    *postgres.Client
	redisClient *redis.Client

	cacheProvider providers.CacheProvider
	httpCache     *middleware.CacheMiddleware
	eventBus      providers.EventBus
	sessions      providers.SessionStore
	generator     *openai.Client

	chat      *services.ChatService
	providers *services.ProviderService
	users     *services.UserService

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	logger := observability.GetLogger()
	a := &app{cfg: cfg, metrics: opts.metrics}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.pgClient, err = postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	a.closers = append(a.closers, func() { a.pgClient.Close() })
	logger.Info().Msg("PostgreSQL client initialized")

	if opts.migrate {
		applied, err := postgres.NewMigrator(a.pgClient).Up(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("applied", applied).Msg("database schema up to date")
	}

	if cfg.Redis.Enabled {
		a.redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			if cfg.Chat.SessionStore == config.SessionStoreRedis {
				return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
			}
			// Continue without Redis; caching is an optimization only
			logger.Warn().Err(err).Msg("failed to initialize Redis client, caching disabled")
			err = nil
		} else {
			a.closers = append(a.closers, func() { a.redisClient.Close() })
			a.cacheProvider = cache.NewRedisAdapter(a.redisClient, "medicapp:")
			a.httpCache = middleware.NewCacheMiddleware(a.cacheProvider, a.metrics)
			bus := events.NewRedisEventBus(a.redisClient)
			a.eventBus = bus
			a.closers = append(a.closers, func() { bus.Close() })
			logger.Info().Msg("Redis client initialized")
		}
	}

	var store database.ProviderStore = database.NewProviderAdapter(a.pgClient)
	if a.cacheProvider != nil {
		store = database.NewCachedProviderAdapter(store, a.cacheProvider, a.metrics)
		logger.Info().Msg("provider adapter wrapped with caching layer")
	}

	var index repositories.ProviderIndex
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Typesense client, search index disabled")
		} else {
			index = openProviderIndex(ctx, search.NewTypesenseAdapter(tsClient))
		}
	}

	switch cfg.Chat.SessionStore {
	case config.SessionStoreRedis:
		a.sessions = session.NewRedisStore(a.redisClient, cfg.Chat.SessionTimeout)
	default:
		a.sessions = session.NewMemoryStore()
	}
	a.closers = append(a.closers, func() { a.sessions.Close() })

	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set; generative replies disabled")
	} else {
		a.generator, err = openai.NewClient(&cfg.OpenAI)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize OpenAI client")
			err = nil
		} else {
			a.closers = append(a.closers, a.generator.Close)
		}
	}

	var generator providers.TextGenerationProvider
	if a.generator != nil {
		generator = a.generator
	}

	a.chat = services.NewChatService(a.sessions, store, generator, services.ChatSettingsFromConfig(cfg), a.metrics)
	a.providers = services.NewProviderService(store, index)
	if a.eventBus != nil {
		a.providers.SetEventBus(a.eventBus)
	}
	a.users = services.NewUserService(database.NewUserAdapter(a.pgClient))

	return a, nil
}

// schemaIndex is a provider index that must prepare its collection first
type schemaIndex interface {
	repositories.ProviderIndex
	InitSchema(ctx context.Context) error
}

// openProviderIndex returns idx once its schema is ready, or nil so provider
// writes skip the mirror and directory searches use the database
func openProviderIndex(ctx context.Context, idx schemaIndex) repositories.ProviderIndex {
	if err := idx.InitSchema(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to init Typesense schema, search index disabled")
		return nil
	}
	observability.LoggerFromContext(ctx).Info().Msg("Typesense index initialized")
	return idx
}

func (a *app) router() *routes.Router {
	checks := map[string]handlers.HealthCheck{
		"postgres": a.pgClient.Ping,
	}
	if a.redisClient != nil {
		checks["redis"] = a.redisClient.Ping
	}

	return routes.NewRouter(
		handlers.NewChatHandler(a.chat),
		handlers.NewProviderHandler(a.providers),
		handlers.NewUserHandler(a.users),
		handlers.NewHealthHandler(checks),
		a.httpCache,
		a.cfg.CORS.AllowedOrigins,
		a.metrics,
	)
}

// watchProviderEvents drops cached HTTP responses whenever any instance
// changes the provider directory. It returns once ctx is done.
func (a *app) watchProviderEvents(ctx context.Context) {
	if a.eventBus == nil || a.httpCache == nil {
		return
	}
	logger := observability.GetLogger()

	changes, err := a.eventBus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		logger.Warn().Err(err).Msg("provider change notifications disabled")
		return
	}
	for event := range changes {
		a.httpCache.Invalidate()
		logger.Debug().Str("provider_id", event.ProviderID).Str("event_type", string(event.EventType)).Msg("provider cache invalidated")
	}
}

// Close releases resources in reverse acquisition order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
