package providers

import (
	"context"
	"errors"

	"github.com/medicapp/backend/internal/domain/entities"
)

// CompletionRequest carries the conversation context and sampling parameters
// sent to a generative-text backend.
type CompletionRequest struct {
	Messages         []entities.Turn
	Model            string
	Temperature      float64
	MaxTokens        int
	FrequencyPenalty float64
}

// TextGenerationProvider produces a reply for a conversation
type TextGenerationProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrTextGenerationUnauthorized is returned when the backend rejects the credentials
var ErrTextGenerationUnauthorized = errors.New("text generation provider unauthorized")
