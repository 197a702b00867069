package routes

import (
	"net/http"

	"github.com/medicapp/backend/internal/api/handlers"
	"github.com/medicapp/backend/internal/api/middleware"
	"github.com/medicapp/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	chatHandler     *handlers.ChatHandler
	providerHandler *handlers.ProviderHandler
	userHandler     *handlers.UserHandler
	healthHandler   *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. providerHandler, userHandler and
// cacheMiddleware may be nil, in which case their routes are not served.
func NewRouter(
	chatHandler *handlers.ChatHandler,
	providerHandler *handlers.ProviderHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler(nil)
	}
	return &Router{
		mux:             http.NewServeMux(),
		chatHandler:     chatHandler,
		providerHandler: providerHandler,
		userHandler:     userHandler,
		healthHandler:   healthHandler,
		cacheMiddleware: cacheMiddleware,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)

	// Conversational router
	r.mux.HandleFunc("POST /api/chat", r.chatHandler.Chat)

	// Provider directory
	if r.providerHandler != nil {
		r.mux.HandleFunc("GET /api/providers", r.providerHandler.ListProviders)
		r.mux.HandleFunc("GET /api/providers/{id}", r.providerHandler.GetProvider)
		r.mux.HandleFunc("POST /api/providers", r.providerHandler.CreateProvider)
		r.mux.HandleFunc("PUT /api/providers/{id}", r.providerHandler.UpdateProvider)
		r.mux.HandleFunc("DELETE /api/providers/{id}", r.providerHandler.DeleteProvider)
	}

	// Staff users (admin dashboard)
	if r.userHandler != nil {
		r.mux.HandleFunc("GET /api/users", r.userHandler.ListUsers)
		r.mux.HandleFunc("GET /api/users/{id}", r.userHandler.GetUser)
		r.mux.HandleFunc("POST /api/users", r.userHandler.CreateUser)
		r.mux.HandleFunc("PUT /api/users/{id}", r.userHandler.UpdateUser)
		r.mux.HandleFunc("DELETE /api/users/{id}", r.userHandler.DeleteUser)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	// Recovery is outermost so a panic anywhere still yields a JSON reply
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}
