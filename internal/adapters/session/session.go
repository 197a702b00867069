// Package session provides chat session stores: an in-memory map for single
// instances and a Redis-backed store for deployments that share sessions.
package session

import (
	"errors"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
)

// ErrInvalidSession is returned when a session has no identifier
var ErrInvalidSession = errors.New("session id is required")

func newSession(id string, now time.Time, seed []entities.Turn) *entities.Session {
	return &entities.Session{
		ID:         id,
		History:    append([]entities.Turn(nil), seed...),
		CreatedAt:  now,
		LastActive: now,
	}
}
