package entities

import "time"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is a bounded-lifetime conversation keyed by an opaque identifier.
// History is in insertion order.
type Session struct {
	ID         string    `json:"id"`
	History    []Turn    `json:"history"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Clone returns a deep copy so callers never share the history slice with a store
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.History = append([]Turn(nil), s.History...)
	return &clone
}

// RecentHistory returns the last n turns, or the whole history when shorter
func (s *Session) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return append([]Turn(nil), s.History...)
	}
	return append([]Turn(nil), s.History[len(s.History)-n:]...)
}

// ExpiredAt reports whether the session has been idle longer than timeout at now
func (s *Session) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive) > timeout
}

// Intent is the classified purpose of a user message
type Intent string

const (
	IntentEmergency    Intent = "urgence"
	IntentPregnancy    Intent = "grossesse"
	IntentSymptom      Intent = "symptome"
	IntentProvider     Intent = "prestataire"
	IntentAdvice       Intent = "conseil"
	IntentConversation Intent = "conversation"
	IntentOrientation  Intent = "orientation"
	IntentUnknown      Intent = "inconnu"
)

// ChatRequest is a single inbound chat message
type ChatRequest struct {
	SessionID    string
	Message      string
	UserLocation *GeoPoint
}

// ChatResponse is the router's answer to a ChatRequest
type ChatResponse struct {
	SessionID string
	Reply     string
	Intent    Intent
}
