package providers

import (
	"context"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
)

// SessionStore defines storage for chat sessions.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Get returns a copy of the session, or nil, nil when it does not exist
	Get(ctx context.Context, id string) (*entities.Session, error)

	// Upsert creates or replaces a session
	Upsert(ctx context.Context, session *entities.Session) error

	// Append atomically creates the session if missing (seeded with seed),
	// appends turns, sets LastActive to now and returns a copy of the result.
	Append(ctx context.Context, id string, now time.Time, seed []entities.Turn, turns ...entities.Turn) (session *entities.Session, created bool, err error)

	// SweepExpired removes every session whose LastActive is before cutoff
	// and returns how many were removed
	SweepExpired(ctx context.Context, cutoff time.Time) (int, error)

	// Len returns the number of live sessions
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the store
	Close() error
}
