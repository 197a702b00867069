package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/repositories"
)

// ProviderManager is the provider directory service used by the handler
type ProviderManager interface {
	Create(ctx context.Context, provider *entities.Provider) (*entities.Provider, error)
	GetByID(ctx context.Context, id string) (*entities.Provider, error)
	Update(ctx context.Context, id string, changes *entities.Provider) (*entities.Provider, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error)
	Search(ctx context.Context, term string, limit int) ([]*entities.Provider, error)
}

// ProviderHandler handles provider directory HTTP requests
type ProviderHandler struct {
	service ProviderManager
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(service ProviderManager) *ProviderHandler {
	return &ProviderHandler{service: service}
}

type providerPayload struct {
	Name     string             `json:"name"`
	Category string             `json:"category"`
	City     string             `json:"city"`
	Address  string             `json:"address"`
	Phone    string             `json:"phone"`
	Services string             `json:"services"`
	Hours    string             `json:"hours"`
	Location *entities.GeoPoint `json:"location"`
	Photos   []string           `json:"photos"`
}

func (p providerPayload) toEntity() *entities.Provider {
	return &entities.Provider{
		Name:     p.Name,
		Category: p.Category,
		City:     p.City,
		Address:  p.Address,
		Phone:    p.Phone,
		Services: p.Services,
		Hours:    p.Hours,
		Location: p.Location,
		Photos:   p.Photos,
	}
}

// ListProviders handles GET /api/providers. A q parameter switches to a
// directory search and ignores the city, category and offset filters.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.ProviderFilter{
		City:     query.Get("city"),
		Category: query.Get("category"),
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		respondWithError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		respondWithError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	var providers []*entities.Provider
	if term := query.Get("q"); term != "" {
		providers, err = h.service.Search(r.Context(), term, filter.Limit)
	} else {
		providers, err = h.service.List(r.Context(), filter)
	}
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// CreateProvider handles POST /api/providers
func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var payload providerPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := h.service.Create(r.Context(), payload.toEntity())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, provider)
}

// UpdateProvider handles PUT /api/providers/{id}
func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	var payload providerPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := h.service.Update(r.Context(), r.PathValue("id"), payload.toEntity())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// DeleteProvider handles DELETE /api/providers/{id}
func (h *ProviderHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
