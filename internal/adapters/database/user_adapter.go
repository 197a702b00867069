package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicapp/backend/pkg/errors"
)

const (
	usersTable          = "users"
	uniqueViolationCode = "23505"
)

var userColumns = []interface{}{
	"id", "company", "identifier", "last_name", "first_name", "birth_date",
	"arrival_date", "job_title", "job_level", "created_at", "updated_at",
}

// UserAdapter implements UserRepository on PostgreSQL
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func userRecord(user *entities.User) goqu.Record {
	return goqu.Record{
		"company":      user.Company,
		"identifier":   user.Identifier,
		"last_name":    user.LastName,
		"first_name":   user.FirstName,
		"birth_date":   user.BirthDate,
		"arrival_date": user.ArrivalDate,
		"job_title":    user.JobTitle,
		"job_level":    user.JobLevel,
		"updated_at":   user.UpdatedAt,
	}
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	record := userRecord(user)
	record["id"] = user.ID
	record["created_at"] = user.CreatedAt

	query, args, err := a.db.Insert(usersTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("identifier %s is already in use", user.Identifier))
		}
		return apperrors.NewInternalError("failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return a.getByField(ctx, "id", id)
}

// GetByIdentifier retrieves a user by login identifier
func (a *UserAdapter) GetByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	return a.getByField(ctx, "identifier", identifier)
}

func (a *UserAdapter) getByField(ctx context.Context, field, value string) (*entities.User, error) {
	query, args, err := a.db.Select(userColumns...).
		From(usersTable).
		Where(goqu.Ex{field: value}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with %s %s not found", field, value))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return user, nil
}

// Update updates a user
func (a *UserAdapter) Update(ctx context.Context, user *entities.User) error {
	user.UpdatedAt = time.Now()

	query, args, err := a.db.Update(usersTable).
		Set(userRecord(user)).
		Where(goqu.Ex{"id": user.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("identifier %s is already in use", user.Identifier))
		}
		return apperrors.NewInternalError("failed to update user", err)
	}
	return expectAffected(result, fmt.Sprintf("user with id %s not found", user.ID))
}

// Delete deletes a user
func (a *UserAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(usersTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete user", err)
	}
	return expectAffected(result, fmt.Sprintf("user with id %s not found", id))
}

// List retrieves a page of users, newest first, along with the total count
func (a *UserAdapter) List(ctx context.Context, filter repositories.UserFilter) ([]*entities.User, int, error) {
	base := a.db.From(usersTable)
	if filter.Company != "" {
		base = base.Where(goqu.I("company").ILike("%" + escapeLike(filter.Company) + "%"))
	}

	countQuery, countArgs, err := base.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count users", err)
	}

	ds := base.Select(userColumns...).Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	users := make([]*entities.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperrors.NewInternalError("failed to scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to iterate users", err)
	}

	return users, total, nil
}

func scanUser(row rowScanner) (*entities.User, error) {
	user := &entities.User{}
	err := row.Scan(
		&user.ID,
		&user.Company,
		&user.Identifier,
		&user.LastName,
		&user.FirstName,
		&user.BirthDate,
		&user.ArrivalDate,
		&user.JobTitle,
		&user.JobLevel,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
