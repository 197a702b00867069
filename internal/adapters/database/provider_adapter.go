package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicapp/backend/pkg/errors"
)

const providersTable = "providers"

var providerColumns = []interface{}{
	"id", "name", "category", "city", "address", "phone", "services", "hours",
	"latitude", "longitude", "photos", "created_at", "updated_at",
}

// searchableProviderFields are the columns matched by free-text lookups
var searchableProviderFields = []string{"name", "city", "category", "services"}

// ProviderAdapter implements ProviderRepository and ProviderSearchRepository on PostgreSQL
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) *ProviderAdapter {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var (
	_ repositories.ProviderRepository       = (*ProviderAdapter)(nil)
	_ repositories.ProviderSearchRepository = (*ProviderAdapter)(nil)
)

func providerRecord(provider *entities.Provider) goqu.Record {
	var lat, lon sql.NullFloat64
	if provider.Location != nil {
		lat = sql.NullFloat64{Float64: provider.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: provider.Location.Longitude, Valid: true}
	}
	photos := pq.StringArray(provider.Photos)
	if photos == nil {
		photos = pq.StringArray{}
	}

	return goqu.Record{
		"name":       provider.Name,
		"category":   nullString(provider.Category),
		"city":       nullString(provider.City),
		"address":    nullString(provider.Address),
		"phone":      nullString(provider.Phone),
		"services":   nullString(provider.Services),
		"hours":      nullString(provider.Hours),
		"latitude":   lat,
		"longitude":  lon,
		"photos":     photos,
		"updated_at": provider.UpdatedAt,
	}
}

// Create creates a new provider
func (a *ProviderAdapter) Create(ctx context.Context, provider *entities.Provider) error {
	record := providerRecord(provider)
	record["id"] = provider.ID
	record["created_at"] = provider.CreatedAt

	query, args, err := a.db.Insert(providersTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create provider", err)
	}
	return nil
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From(providersTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider, err := scanProvider(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return provider, nil
}

// Update updates a provider
func (a *ProviderAdapter) Update(ctx context.Context, provider *entities.Provider) error {
	provider.UpdatedAt = time.Now()

	query, args, err := a.db.Update(providersTable).
		Set(providerRecord(provider)).
		Where(goqu.Ex{"id": provider.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update provider", err)
	}
	return expectAffected(result, fmt.Sprintf("provider with id %s not found", provider.ID))
}

// Delete deletes a provider
func (a *ProviderAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(providersTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete provider", err)
	}
	return expectAffected(result, fmt.Sprintf("provider with id %s not found", id))
}

// List retrieves providers with filters, oldest first
func (a *ProviderAdapter) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	ds := a.db.Select(providerColumns...).From(providersTable)

	if filter.City != "" {
		ds = ds.Where(goqu.Func("lower", goqu.I("city")).Eq(strings.ToLower(filter.City)))
	}
	if filter.Category != "" {
		ds = ds.Where(goqu.Func("lower", goqu.I("category")).Eq(strings.ToLower(filter.Category)))
	}

	ds = ds.Order(goqu.I("created_at").Asc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	return a.queryProviders(ctx, ds)
}

// SearchText returns providers whose name, city, category or services contain
// term, ignoring case and accents. Results keep insertion order.
func (a *ProviderAdapter) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	pattern := "%" + escapeLike(term) + "%"

	conditions := make([]exp.Expression, 0, len(searchableProviderFields))
	for _, field := range searchableProviderFields {
		conditions = append(conditions, goqu.L("unaccent(?) ILIKE unaccent(?)", goqu.I(field), pattern))
	}

	ds := a.db.Select(providerColumns...).
		From(providersTable).
		Where(goqu.Or(conditions...)).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	return a.queryProviders(ctx, ds)
}

func (a *ProviderAdapter) queryProviders(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Provider, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query providers", err)
	}
	defer rows.Close()

	providers := make([]*entities.Provider, 0)
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate providers", err)
	}

	return providers, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*entities.Provider, error) {
	provider := &entities.Provider{}
	var category, city, address, phone, services, hours sql.NullString
	var lat, lon sql.NullFloat64
	var photos pq.StringArray

	err := row.Scan(
		&provider.ID,
		&provider.Name,
		&category,
		&city,
		&address,
		&phone,
		&services,
		&hours,
		&lat,
		&lon,
		&photos,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	provider.Category = category.String
	provider.City = city.String
	provider.Address = address.String
	provider.Phone = phone.String
	provider.Services = services.String
	provider.Hours = hours.String
	if lat.Valid && lon.Valid {
		provider.Location = &entities.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if len(photos) > 0 {
		provider.Photos = []string(photos)
	}

	return provider, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes LIKE metacharacters in s match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func expectAffected(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}
