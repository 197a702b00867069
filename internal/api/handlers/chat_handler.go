package handlers

import (
	"context"
	"net/http"

	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	apperrors "github.com/medicapp/backend/pkg/errors"
)

// ChatRouter answers chat messages
type ChatRouter interface {
	HandleMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error)
}

// ChatHandler handles the conversational endpoint
type ChatHandler struct {
	router ChatRouter
}

// NewChatHandler creates a new chat handler
func NewChatHandler(router ChatRouter) *ChatHandler {
	return &ChatHandler{router: router}
}

type chatRequest struct {
	Message      string             `json:"message"`
	SessionID    string             `json:"sessionId,omitempty"`
	UserLocation *entities.GeoPoint `json:"userLocation,omitempty"`
}

type chatReply struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId,omitempty"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, chatReply{Reply: services.ReplyEmptyMessage})
		return
	}

	resp, err := h.router.HandleMessage(r.Context(), entities.ChatRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		UserLocation: req.UserLocation,
	})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithJSON(w, http.StatusBadRequest, chatReply{Reply: services.ReplyEmptyMessage})
			return
		}
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("chat request failed")
		respondWithJSON(w, http.StatusInternalServerError, chatReply{Reply: services.ReplyInternalError})
		return
	}

	respondWithJSON(w, http.StatusOK, chatReply{Reply: resp.Reply, SessionID: resp.SessionID})
}
