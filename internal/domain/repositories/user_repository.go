package repositories

import (
	"context"

	"github.com/medicapp/backend/internal/domain/entities"
)

// UserRepository defines the interface for staff user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByIdentifier retrieves a user by login identifier
	GetByIdentifier(ctx context.Context, identifier string) (*entities.User, error)

	// Update updates a user
	Update(ctx context.Context, user *entities.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id string) error

	// List retrieves a page of users and the total matching count
	List(ctx context.Context, filter UserFilter) ([]*entities.User, int, error)
}

// UserFilter represents filters for listing users
type UserFilter struct {
	// Company is matched case-insensitively as a substring
	Company string
	Limit   int
	Offset  int
}
