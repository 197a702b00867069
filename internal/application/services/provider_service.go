package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/medicapp/backend/pkg/utils"
)

const (
	defaultProviderPageSize = 50
	maxProviderPageSize     = 200
	reindexBatchSize        = 100
	defaultSearchLimit      = 20
)

// ProviderService handles provider directory management. Writes are mirrored
// into the search index when one is configured; index faults are logged only.
type ProviderService struct {
	repo     repositories.ProviderRepository
	index    repositories.ProviderIndex
	eventBus providers.EventBus
	now      func() time.Time
}

// NewProviderService creates a new provider service. index may be nil.
// Directory searches use the index when present, otherwise repo when it
// answers free-text lookups.
func NewProviderService(repo repositories.ProviderRepository, index repositories.ProviderIndex) *ProviderService {
	return &ProviderService{
		repo:  repo,
		index: index,
		now:   time.Now,
	}
}

// SetEventBus enables change notifications on every successful write
func (s *ProviderService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// Create validates and stores a new provider
func (s *ProviderService) Create(ctx context.Context, provider *entities.Provider) (*entities.Provider, error) {
	if provider == nil {
		return nil, apperrors.NewValidationError("provider is required")
	}
	sanitizeProvider(provider)
	if err := validateProvider(provider); err != nil {
		return nil, err
	}

	now := s.now()
	provider.ID = uuid.NewString()
	provider.CreatedAt = now
	provider.UpdatedAt = now

	if err := s.repo.Create(ctx, provider); err != nil {
		return nil, err
	}

	s.mirror(ctx, provider)
	s.publish(ctx, provider.ID, entities.ProviderEventCreated)
	return provider, nil
}

// GetByID retrieves a provider
func (s *ProviderService) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Update replaces the editable fields of an existing provider
func (s *ProviderService) Update(ctx context.Context, id string, changes *entities.Provider) (*entities.Provider, error) {
	if changes == nil {
		return nil, apperrors.NewValidationError("provider is required")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitizeProvider(changes)
	changes.ID = existing.ID
	changes.CreatedAt = existing.CreatedAt
	if err := validateProvider(changes); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, changes); err != nil {
		return nil, err
	}

	s.mirror(ctx, changes)
	s.publish(ctx, id, entities.ProviderEventUpdated)
	return changes, nil
}

// Delete removes a provider
func (s *ProviderService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("provider id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", id).Msg("failed to remove provider from search index")
		}
	}
	s.publish(ctx, id, entities.ProviderEventDeleted)
	return nil
}

// List retrieves providers with filters
func (s *ProviderService) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultProviderPageSize
	}
	if filter.Limit > maxProviderPageSize {
		filter.Limit = maxProviderPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Search runs a directory search for term. The index tolerates typos and
// ranks by relevance; the database fallback matches substrings.
func (s *ProviderService) Search(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.NewValidationError("search term is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxProviderPageSize {
		limit = maxProviderPageSize
	}

	if s.index != nil {
		return s.index.SearchText(ctx, term, limit)
	}
	if search, ok := s.repo.(repositories.ProviderSearchRepository); ok {
		return search.SearchText(ctx, utils.NormalizeText(term), limit)
	}
	return nil, apperrors.NewInternalError("provider search is not available", nil)
}

// Reindex pushes every stored provider into the search index and returns the
// number indexed
func (s *ProviderService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, apperrors.NewValidationError("no search index configured")
	}

	indexed := 0
	for offset := 0; ; offset += reindexBatchSize {
		batch, err := s.repo.List(ctx, repositories.ProviderFilter{Limit: reindexBatchSize, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, provider := range batch {
			if err := s.index.Index(ctx, provider); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(batch) < reindexBatchSize {
			return indexed, nil
		}
	}
}

func (s *ProviderService) mirror(ctx context.Context, provider *entities.Provider) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, provider); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", provider.ID).Msg("failed to index provider")
	}
}

func (s *ProviderService) publish(ctx context.Context, id string, eventType entities.ProviderEventType) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewProviderEvent(id, eventType)
	if err := s.eventBus.Publish(ctx, providers.EventChannelProviderUpdates, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", id).Msg("failed to publish provider event")
	}
}

func sanitizeProvider(p *entities.Provider) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.City = strings.TrimSpace(p.City)
	p.Address = strings.TrimSpace(p.Address)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Services = strings.TrimSpace(p.Services)
	p.Hours = strings.TrimSpace(p.Hours)
}

func validateProvider(p *entities.Provider) error {
	if p.Name == "" {
		return apperrors.NewValidationError("name is required")
	}
	if p.Location != nil && !p.Location.Valid() {
		return apperrors.NewValidationError("latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	return nil
}
