package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/repositories"
	tsclient "github.com/medicapp/backend/internal/infrastructure/clients/typesense"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// ProvidersCollection is the Typesense collection holding provider documents
const ProvidersCollection = "providers"

// TypesenseAdapter implements ProviderIndex using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProviderIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the providers collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(ProvidersCollection).Retrieve(ctx); err == nil {
		return nil
	}

	_, err := a.client.Client().Collections().Create(ctx, providerSchema())
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

func providerSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: ProvidersCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "category", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "city", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "address", Type: "string", Optional: pointer.True()},
			{Name: "phone", Type: "string", Optional: pointer.True()},
			{Name: "services", Type: "string", Optional: pointer.True()},
			{Name: "hours", Type: "string", Optional: pointer.True()},
			{Name: "location", Type: "geopoint", Optional: pointer.True()},
			{Name: "photos", Type: "string[]", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// Index inserts or replaces a provider document
func (a *TypesenseAdapter) Index(ctx context.Context, provider *entities.Provider) error {
	_, err := a.client.Client().Collection(ProvidersCollection).Documents().Upsert(ctx, buildProviderDocument(provider))
	if err != nil {
		return apperrors.NewExternalError("failed to index provider", err)
	}
	return nil
}

// Remove deletes a provider document. A missing document is not an error.
func (a *TypesenseAdapter) Remove(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(ProvidersCollection).Document(id).Delete(ctx)
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			return nil
		}
		return apperrors.NewExternalError("failed to remove provider from index", err)
	}
	return nil
}

// SearchText queries the index by name, city, category and services, oldest first
func (a *TypesenseAdapter) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	result, err := a.client.Client().Collection(ProvidersCollection).Documents().Search(ctx, buildSearchParams(term, limit))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to search providers", err)
	}

	providers := make([]*entities.Provider, 0)
	if result.Hits == nil {
		return providers, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		providers = append(providers, parseProviderDocument(*hit.Document))
	}
	return providers, nil
}

func buildSearchParams(term string, limit int) *api.SearchCollectionParams {
	q := strings.TrimSpace(term)
	if q == "" {
		q = "*"
	}
	if limit <= 0 {
		limit = 10
	}
	return &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,city,category,services"),
		SortBy:  pointer.String("created_at:asc"),
		Page:    pointer.Int(1),
		PerPage: pointer.Int(limit),
	}
}

func buildProviderDocument(provider *entities.Provider) map[string]interface{} {
	document := map[string]interface{}{
		"id":         provider.ID,
		"name":       provider.Name,
		"category":   provider.Category,
		"city":       provider.City,
		"address":    provider.Address,
		"phone":      provider.Phone,
		"services":   provider.Services,
		"hours":      provider.Hours,
		"created_at": provider.CreatedAt.Unix(),
		"updated_at": provider.UpdatedAt.Unix(),
	}
	if provider.Location != nil {
		document["location"] = []float64{provider.Location.Latitude, provider.Location.Longitude}
	}
	if len(provider.Photos) > 0 {
		document["photos"] = provider.Photos
	}
	return document
}

func parseProviderDocument(doc map[string]interface{}) *entities.Provider {
	provider := &entities.Provider{
		ID:       stringField(doc, "id"),
		Name:     stringField(doc, "name"),
		Category: stringField(doc, "category"),
		City:     stringField(doc, "city"),
		Address:  stringField(doc, "address"),
		Phone:    stringField(doc, "phone"),
		Services: stringField(doc, "services"),
		Hours:    stringField(doc, "hours"),
	}

	if loc, ok := doc["location"].([]interface{}); ok && len(loc) == 2 {
		lat, latOK := loc[0].(float64)
		lon, lonOK := loc[1].(float64)
		if latOK && lonOK {
			provider.Location = &entities.GeoPoint{Latitude: lat, Longitude: lon}
		}
	}
	if photos, ok := doc["photos"].([]interface{}); ok {
		for _, photo := range photos {
			if s, ok := photo.(string); ok {
				provider.Photos = append(provider.Photos, s)
			}
		}
	}
	if ts, ok := doc["created_at"].(float64); ok {
		provider.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}
	if ts, ok := doc["updated_at"].(float64); ok {
		provider.UpdatedAt = time.Unix(int64(ts), 0).UTC()
	}

	return provider
}

func stringField(doc map[string]interface{}, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}
