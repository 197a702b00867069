package repositories

import (
	"context"

	"github.com/medicapp/backend/internal/domain/entities"
)

// ProviderRepository defines the interface for provider data operations
type ProviderRepository interface {
	// Create creates a new provider
	Create(ctx context.Context, provider *entities.Provider) error

	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// Update updates a provider
	Update(ctx context.Context, provider *entities.Provider) error

	// Delete deletes a provider
	Delete(ctx context.Context, id string) error

	// List retrieves providers with filters
	List(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)
}

// ProviderSearchRepository defines free-text provider lookup.
// SearchText matches term as a case-insensitive substring of the name, city,
// category or services field (any of the four), returns at most limit
// records and preserves the store's natural order.
type ProviderSearchRepository interface {
	SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error)
}

// ProviderIndex is a secondary search index kept in sync with the provider store (e.g. Typesense)
type ProviderIndex interface {
	ProviderSearchRepository

	// Index inserts or replaces a provider document
	Index(ctx context.Context, provider *entities.Provider) error

	// Remove deletes a provider document
	Remove(ctx context.Context, id string) error
}

// ProviderFilter represents filters for listing providers
type ProviderFilter struct {
	City     string
	Category string
	Limit    int
	Offset   int
}
