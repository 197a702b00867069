package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/medicapp/backend/internal/adapters/session"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	service   *ChatService
	store     *session.MemoryStore
	search    *mockProviderSearch
	generator *mockGenerator
	clock     *fakeClock
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		store:     session.NewMemoryStore(),
		search:    new(mockProviderSearch),
		generator: new(mockGenerator),
		clock:     newFakeClock(),
	}
	f.service = NewChatService(f.store, f.search, f.generator, DefaultChatSettings(), nil)
	f.service.now = f.clock.Now
	ids := 0
	f.service.newID = func() string {
		ids++
		return fmt.Sprintf("generated-%d", ids)
	}
	return f
}

func (f *chatFixture) send(t *testing.T, sessionID, message string) *entities.ChatResponse {
	t.Helper()
	resp, err := f.service.HandleMessage(context.Background(), entities.ChatRequest{SessionID: sessionID, Message: message})
	require.NoError(t, err)
	return resp
}

func TestChatService_EmptyMessageIsRejectedWithoutSession(t *testing.T) {
	f := newChatFixture(t)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := f.service.HandleMessage(context.Background(), entities.ChatRequest{SessionID: "s1", Message: msg})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		assert.Equal(t, ReplyEmptyMessage, apperrors.Message(err, ""))
	}

	n, err := f.store.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChatService_DirectRepliesAndHistory(t *testing.T) {
	f := newChatFixture(t)

	tests := []struct {
		message string
		intent  entities.Intent
		reply   string
	}{
		{"Au secours, c'est une urgence !", entities.IntentEmergency, ReplyEmergency},
		{"J'ai de la fièvre", entities.IntentSymptom, ReplySymptom},
		{"un conseil santé ?", entities.IntentAdvice, ReplyAdvice},
		{"Bonjour", entities.IntentConversation, ReplyConversation},
	}

	for _, tt := range tests {
		resp := f.send(t, "s1", tt.message)
		assert.Equal(t, tt.intent, resp.Intent, tt.message)
		assert.Equal(t, tt.reply, resp.Reply, tt.message)
		assert.Equal(t, "s1", resp.SessionID)
	}

	stored, err := f.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored.History, 1+2*len(tests))
	assert.Equal(t, entities.Turn{Role: entities.RoleSystem, Content: SystemPrompt}, stored.History[0])
	assert.Equal(t, entities.Turn{Role: entities.RoleUser, Content: "Bonjour"}, stored.History[7])
	assert.Equal(t, entities.Turn{Role: entities.RoleAssistant, Content: ReplyConversation}, stored.History[8])
	f.search.AssertNotCalled(t, "SearchText", mock.Anything, mock.Anything, mock.Anything)
	f.generator.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChatService_GeneratesSessionID(t *testing.T) {
	f := newChatFixture(t)

	resp := f.send(t, "", "bonjour")
	assert.Equal(t, "generated-1", resp.SessionID)

	stored, err := f.store.Get(context.Background(), "generated-1")
	require.NoError(t, err)
	assert.Len(t, stored.History, 3)
}

func TestChatService_ProviderLookupUsesNormalizedTermAndRanks(t *testing.T) {
	f := newChatFixture(t)
	results := []*entities.Provider{
		{Name: "Pharmacie Loin", City: "Lyon", Location: &entities.GeoPoint{Latitude: 45.9, Longitude: 4.9}},
		{Name: "Pharmacie Sans GPS", City: "Lyon"},
		{Name: "Pharmacie Proche", City: "Lyon", Address: "3 quai", Phone: "0607", Location: &entities.GeoPoint{Latitude: 45.7601, Longitude: 4.8358}},
	}
	f.search.On("SearchText", mock.Anything, "pharmacie a lyon", 5).Return(results, nil)

	resp, err := f.service.HandleMessage(context.Background(), entities.ChatRequest{
		SessionID:    "s1",
		Message:      "Pharmacie à Lyon",
		UserLocation: &entities.GeoPoint{Latitude: 45.76, Longitude: 4.8357},
	})
	require.NoError(t, err)

	assert.Equal(t, entities.IntentProvider, resp.Intent)
	want := "📌 Résultats pour \"Pharmacie à Lyon\":\n" +
		"🏥 Pharmacie Proche (0 km)\n" +
		"📍 3 quai\n" +
		"📞 0607\n" +
		"🕒 Horaires non précisés\n" +
		"\n🔹 Pharmacie Loin (Lyon) - 16 km\n" +
		"\n🔹 Pharmacie Sans GPS (Lyon)"
	assert.Equal(t, want, resp.Reply)
	f.search.AssertExpectations(t)
}

func TestChatService_ProviderLookupWithoutLocationKeepsOrder(t *testing.T) {
	f := newChatFixture(t)
	results := []*entities.Provider{
		{Name: "Premier", City: "Nice", Location: &entities.GeoPoint{Latitude: 43.7, Longitude: 7.26}},
		{Name: "Second", City: "Nice"},
	}
	f.search.On("SearchText", mock.Anything, "clinique", 5).Return(results, nil)

	resp := f.send(t, "s1", "Clinique")
	assert.Contains(t, resp.Reply, "🏥 Premier\n")
	assert.Contains(t, resp.Reply, "\n🔹 Second (Nice)")
}

func TestChatService_ProviderLookupNoResultsIsRecorded(t *testing.T) {
	f := newChatFixture(t)
	f.search.On("SearchText", mock.Anything, "dentiste", 5).Return([]*entities.Provider{}, nil)

	resp := f.send(t, "s1", "dentiste")
	assert.Equal(t, ReplyNoProviders, resp.Reply)

	stored, _ := f.store.Get(context.Background(), "s1")
	assert.Equal(t, ReplyNoProviders, stored.History[len(stored.History)-1].Content)
}

func TestChatService_ProviderStoreFaultIsInternal(t *testing.T) {
	f := newChatFixture(t)
	f.search.On("SearchText", mock.Anything, mock.Anything, 5).Return(nil, errors.New("connection refused"))

	_, err := f.service.HandleMessage(context.Background(), entities.ChatRequest{SessionID: "s1", Message: "hopital"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))

	stored, _ := f.store.Get(context.Background(), "s1")
	require.Len(t, stored.History, 2)
	assert.Equal(t, entities.RoleUser, stored.History[1].Role)
}

func TestChatService_GenerativeFallback(t *testing.T) {
	for _, message := range []string{"Parle-moi de la météo", "Je suis enceinte", "itinéraire vers la gare"} {
		t.Run(message, func(t *testing.T) {
			f := newChatFixture(t)
			f.generator.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
				return req.Model == "gpt-3.5-turbo" &&
					req.Temperature == 0.7 &&
					req.MaxTokens == 150 &&
					req.FrequencyPenalty == 0.5 &&
					len(req.Messages) == 2 &&
					req.Messages[0].Role == entities.RoleSystem &&
					req.Messages[1].Content == message
			})).Return("Réponse générée", nil).Once()

			resp := f.send(t, "s1", message)
			assert.Equal(t, "Réponse générée", resp.Reply)
			f.generator.AssertExpectations(t)
		})
	}
}

func TestChatService_GenerativeContextIsLastSixTurns(t *testing.T) {
	f := newChatFixture(t)
	for i := 0; i < 5; i++ {
		f.send(t, "s1", "bonjour")
	}

	var captured providers.CompletionRequest
	f.generator.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(providers.CompletionRequest) }).
		Return("ok", nil)

	f.send(t, "s1", "raconte une histoire")

	require.Len(t, captured.Messages, 6)
	assert.Equal(t, entities.RoleUser, captured.Messages[5].Role)
	assert.Equal(t, "raconte une histoire", captured.Messages[5].Content)
	assert.Equal(t, entities.RoleAssistant, captured.Messages[4].Role)
	for _, turn := range captured.Messages {
		assert.NotEqual(t, entities.RoleSystem, turn.Role)
	}
}

func TestChatService_GenerativeFailureIsAbsorbed(t *testing.T) {
	f := newChatFixture(t)
	f.generator.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	resp := f.send(t, "s1", "quelle heure est il")
	assert.Equal(t, ReplyGenerativeFailure, resp.Reply)

	stored, _ := f.store.Get(context.Background(), "s1")
	assert.Equal(t, entities.Turn{Role: entities.RoleAssistant, Content: ReplyGenerativeFailure}, stored.History[2])
}

func TestChatService_NoGeneratorConfigured(t *testing.T) {
	store := session.NewMemoryStore()
	service := NewChatService(store, new(mockProviderSearch), nil, DefaultChatSettings(), nil)

	resp, err := service.HandleMessage(context.Background(), entities.ChatRequest{SessionID: "s1", Message: "blabla"})
	require.NoError(t, err)
	assert.Equal(t, ReplyGenerativeFailure, resp.Reply)
}

func TestChatService_InlineSweepOnEveryTenthCreation(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "stale", "bonjour")
	f.clock.Advance(2 * time.Hour)

	// creations 2..9 do not sweep
	for i := 2; i <= 9; i++ {
		f.send(t, fmt.Sprintf("s%d", i), "bonjour")
	}
	stale, _ := f.store.Get(context.Background(), "stale")
	assert.NotNil(t, stale)

	// tenth creation sweeps
	f.send(t, "s10", "bonjour")
	stale, _ = f.store.Get(context.Background(), "stale")
	assert.Nil(t, stale)

	n, _ := f.store.Len(context.Background())
	assert.Equal(t, 9, n)
}

func TestChatService_SweepExpiredBoundary(t *testing.T) {
	f := newChatFixture(t)
	f.send(t, "idle", "bonjour")

	f.clock.Advance(time.Hour)
	removed, err := f.service.SweepExpired(context.Background(), SweepTriggerManual)
	require.NoError(t, err)
	assert.Zero(t, removed, "a session idle for exactly the timeout survives")

	f.clock.Advance(time.Second)
	removed, err = f.service.SweepExpired(context.Background(), SweepTriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestChatService_ActivityKeepsSessionAlive(t *testing.T) {
	f := newChatFixture(t)
	f.send(t, "s1", "bonjour")

	f.clock.Advance(50 * time.Minute)
	f.send(t, "s1", "salut")
	f.clock.Advance(50 * time.Minute)

	removed, err := f.service.SweepExpired(context.Background(), SweepTriggerManual)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestChatService_ConcurrentMessagesOnOneSession(t *testing.T) {
	f := newChatFixture(t)
	f.service.newID = func() string { return "unused" }

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.HandleMessage(context.Background(), entities.ChatRequest{SessionID: "shared", Message: "bonjour"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.Get(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, stored.History, 1+2*workers)
	assert.Equal(t, entities.RoleSystem, stored.History[0].Role)
}

func TestChatSettingsDefaultsApplied(t *testing.T) {
	service := NewChatService(session.NewMemoryStore(), new(mockProviderSearch), nil, ChatSettings{}, nil)
	assert.Equal(t, time.Hour, service.SessionTimeout())
	assert.Equal(t, 10, service.settings.SweepEvery)
	assert.Equal(t, 6, service.settings.HistoryWindow)
	assert.Equal(t, 5, service.settings.SearchLimit)
}
