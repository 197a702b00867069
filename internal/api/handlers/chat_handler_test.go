package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medicapp/backend/internal/adapters/session"
	"github.com/medicapp/backend/internal/api/handlers"
	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/domain/entities"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatRouter struct {
	requests []entities.ChatRequest
	resp     *entities.ChatResponse
	err      error
}

func (s *stubChatRouter) HandleMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error) {
	s.requests = append(s.requests, req)
	return s.resp, s.err
}

type stubProviderSearch struct {
	results []*entities.Provider
}

func (s *stubProviderSearch) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	return s.results, nil
}

func postChat(t *testing.T, handler *handlers.ChatHandler, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w.Code, response
}

func TestChatHandler_Success(t *testing.T) {
	router := &stubChatRouter{resp: &entities.ChatResponse{SessionID: "abc", Reply: "bonjour", Intent: entities.IntentConversation}}
	handler := handlers.NewChatHandler(router)

	code, response := postChat(t, handler, `{"message":"Bonjour","sessionId":"abc","userLocation":{"latitude":5.3,"longitude":-4.0}}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bonjour", response["reply"])
	assert.Equal(t, "abc", response["sessionId"])
	_, hasIntent := response["intent"]
	assert.False(t, hasIntent)

	require.Len(t, router.requests, 1)
	assert.Equal(t, "Bonjour", router.requests[0].Message)
	require.NotNil(t, router.requests[0].UserLocation)
	assert.Equal(t, 5.3, router.requests[0].UserLocation.Latitude)
}

func TestChatHandler_BadBodies(t *testing.T) {
	router := &stubChatRouter{}
	handler := handlers.NewChatHandler(router)

	for _, body := range []string{``, `not json`, `{"message": 42}`, `[]`} {
		code, response := postChat(t, handler, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, services.ReplyEmptyMessage, response["reply"], body)
	}
	assert.Empty(t, router.requests)
}

func TestChatHandler_ValidationError(t *testing.T) {
	router := &stubChatRouter{err: apperrors.NewValidationError(services.ReplyEmptyMessage)}
	handler := handlers.NewChatHandler(router)

	code, response := postChat(t, handler, `{"message":"   "}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, services.ReplyEmptyMessage, response["reply"])
}

func TestChatHandler_InternalError(t *testing.T) {
	router := &stubChatRouter{err: apperrors.NewInternalError("failed to search providers", errors.New("connection refused"))}
	handler := handlers.NewChatHandler(router)

	code, response := postChat(t, handler, `{"message":"une pharmacie"}`)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, services.ReplyInternalError, response["reply"])
	assert.NotContains(t, response["reply"], "connection refused")
}

func TestChatHandler_EndToEnd(t *testing.T) {
	store := session.NewMemoryStore()
	search := &stubProviderSearch{results: []*entities.Provider{
		{Name: "Pharmacie du Plateau", City: "Abidjan", Address: "Rue 12", Phone: "0102030405"},
	}}
	chat := services.NewChatService(store, search, nil, services.DefaultChatSettings(), nil)
	handler := handlers.NewChatHandler(chat)

	code, first := postChat(t, handler, `{"message":"Je cherche une pharmacie"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, first["reply"], "Pharmacie du Plateau")
	require.NotEmpty(t, first["sessionId"])

	code, second := postChat(t, handler, `{"message":"Bonjour","sessionId":"`+first["sessionId"]+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.ReplyConversation, second["reply"])
	assert.Equal(t, first["sessionId"], second["sessionId"])

	sess, err := store.Get(context.Background(), first["sessionId"])
	require.NoError(t, err)
	// system seed + two user/assistant exchanges
	assert.Len(t, sess.History, 5)

	// generative intents without a backend still answer 200
	code, third := postChat(t, handler, `{"message":"xyzzy","sessionId":"`+first["sessionId"]+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.ReplyGenerativeFailure, third["reply"])
}
