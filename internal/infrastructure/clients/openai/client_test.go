package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		RateLimitRPM:   600,
		RateLimitBurst: 2,
		Timeout:        2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestClient_Complete(t *testing.T) {
	var received chatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Buvez de l'eau.  "}}]}`))
	})

	reply, err := client.Complete(context.Background(), providers.CompletionRequest{
		Messages: []entities.Turn{
			{Role: entities.RoleSystem, Content: "system"},
			{Role: entities.RoleUser, Content: "quoi faire"},
		},
		Model:            "gpt-3.5-turbo",
		Temperature:      0.7,
		MaxTokens:        150,
		FrequencyPenalty: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Buvez de l'eau.", reply)

	assert.Equal(t, "gpt-3.5-turbo", received.Model)
	assert.Equal(t, 0.7, received.Temperature)
	assert.Equal(t, 150, received.MaxTokens)
	assert.Equal(t, 0.5, received.FrequencyPenalty)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "quoi faire", received.Messages[1].Content)
}

func TestClient_CompleteDefaultsModel(t *testing.T) {
	var received chatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{
		Messages: []entities.Turn{{Role: entities.RoleUser, Content: "salut"}},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, received.Model)
}

func TestClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, providers.ErrTextGenerationUnauthorized},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, nil},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, nil},
		{"invalid json", http.StatusOK, `not json`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), providers.CompletionRequest{
				Messages: []entities.Turn{{Role: entities.RoleUser, Content: "test"}},
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestClient_CompleteRequiresMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{})
	assert.Error(t, err)
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	limiter := newLimiter(1, 1)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestNewLimiter_Disabled(t *testing.T) {
	assert.Nil(t, newLimiter(-1, 5))
}
