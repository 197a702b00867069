package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/repositories"
	apperrors "github.com/medicapp/backend/pkg/errors"
)

const (
	defaultUserPageSize = 10
	maxUserPageSize     = 100
)

// UserPage is one page of a user listing
type UserPage struct {
	Users []*entities.User `json:"users"`
	Count int              `json:"count"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
}

// UserListParams are the query options of a user listing
type UserListParams struct {
	Company string
	Page    int
	Limit   int
}

// UserService manages staff accounts
type UserService struct {
	repo repositories.UserRepository
	now  func() time.Time
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// Create stores a new user. The identifier must be unique.
func (s *UserService) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	if user == nil {
		return nil, apperrors.NewValidationError("user is required")
	}
	sanitizeUser(user)
	if err := validateUser(user); err != nil {
		return nil, err
	}

	if err := s.ensureIdentifierFree(ctx, user.Identifier, ""); err != nil {
		return nil, err
	}

	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user
func (s *UserService) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Update replaces a user's fields. The identifier may not belong to another user.
func (s *UserService) Update(ctx context.Context, id string, changes *entities.User) (*entities.User, error) {
	if changes == nil {
		return nil, apperrors.NewValidationError("user is required")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitizeUser(changes)
	if err := validateUser(changes); err != nil {
		return nil, err
	}
	if err := s.ensureIdentifierFree(ctx, changes.Identifier, existing.ID); err != nil {
		return nil, err
	}

	changes.ID = existing.ID
	changes.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("user id is required")
	}
	return s.repo.Delete(ctx, id)
}

// List returns one page of users, newest first
func (s *UserService) List(ctx context.Context, params UserListParams) (*UserPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}

	users, total, err := s.repo.List(ctx, repositories.UserFilter{
		Company: strings.TrimSpace(params.Company),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	return &UserPage{
		Users: users,
		Count: len(users),
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func (s *UserService) ensureIdentifierFree(ctx context.Context, identifier, ownerID string) error {
	holder, err := s.repo.GetByIdentifier(ctx, identifier)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder != nil && holder.ID != ownerID {
		return apperrors.NewConflictError(fmt.Sprintf("identifier %s is already in use", identifier))
	}
	return nil
}

func sanitizeUser(u *entities.User) {
	u.Company = strings.TrimSpace(u.Company)
	u.Identifier = strings.TrimSpace(u.Identifier)
	u.LastName = strings.TrimSpace(u.LastName)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.JobTitle = strings.TrimSpace(u.JobTitle)
	u.JobLevel = strings.TrimSpace(u.JobLevel)
}

func validateUser(u *entities.User) error {
	var missing []string
	for _, field := range []struct {
		name  string
		empty bool
	}{
		{"company", u.Company == ""},
		{"identifier", u.Identifier == ""},
		{"last_name", u.LastName == ""},
		{"first_name", u.FirstName == ""},
		{"birth_date", u.BirthDate.IsZero()},
		{"arrival_date", u.ArrivalDate.IsZero()},
		{"job_title", u.JobTitle == ""},
		{"job_level", u.JobLevel == ""},
	} {
		if field.empty {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
