package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/domain/entities"
)

// UserManager is the staff account service used by the handler
type UserManager interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	GetByID(ctx context.Context, id string) (*entities.User, error)
	Update(ctx context.Context, id string, changes *entities.User) (*entities.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params services.UserListParams) (*services.UserPage, error)
}

// UserHandler handles staff user HTTP requests
type UserHandler struct {
	service UserManager
}

// NewUserHandler creates a new user handler
func NewUserHandler(service UserManager) *UserHandler {
	return &UserHandler{service: service}
}

type userPayload struct {
	Company     string `json:"company"`
	Identifier  string `json:"identifier"`
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	BirthDate   string `json:"birth_date"`
	ArrivalDate string `json:"arrival_date"`
	JobTitle    string `json:"job_title"`
	JobLevel    string `json:"job_level"`
}

func (p userPayload) toEntity() (*entities.User, error) {
	birth, err := parseDate(p.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("birth_date: %w", err)
	}
	arrival, err := parseDate(p.ArrivalDate)
	if err != nil {
		return nil, fmt.Errorf("arrival_date: %w", err)
	}
	return &entities.User{
		Company:     p.Company,
		Identifier:  p.Identifier,
		LastName:    p.LastName,
		FirstName:   p.FirstName,
		BirthDate:   birth,
		ArrivalDate: arrival,
		JobTitle:    p.JobTitle,
		JobLevel:    p.JobLevel,
	}, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty value yields the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := intParam(query.Get("page"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	result, err := h.service.List(r.Context(), services.UserListParams{
		Company: query.Get("company"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUser(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), user)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// UpdateUser handles PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUser(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), r.PathValue("id"), user)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) decodeUser(w http.ResponseWriter, r *http.Request) (*entities.User, bool) {
	var payload userPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	user, err := payload.toEntity()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return user, true
}
