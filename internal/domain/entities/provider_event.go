package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProviderEventType represents the kind of directory change
type ProviderEventType string

const (
	ProviderEventCreated ProviderEventType = "created"
	ProviderEventUpdated ProviderEventType = "updated"
	ProviderEventDeleted ProviderEventType = "deleted"
)

// ProviderEvent announces a change to a provider record
type ProviderEvent struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	EventType  ProviderEventType `json:"event_type"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewProviderEvent creates a new provider event
func NewProviderEvent(providerID string, eventType ProviderEventType) *ProviderEvent {
	return &ProviderEvent{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
	}
}
