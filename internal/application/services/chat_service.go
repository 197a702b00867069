package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	"github.com/medicapp/backend/pkg/config"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/medicapp/backend/pkg/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Sweep triggers, used as a metric attribute
const (
	SweepTriggerInline = "inline"
	SweepTriggerTicker = "ticker"
	SweepTriggerManual = "manual"
)

// ChatSettings tunes the chat router
type ChatSettings struct {
	SessionTimeout time.Duration
	SweepEvery     int
	HistoryWindow  int
	SearchLimit    int

	Model            string
	Temperature      float64
	MaxTokens        int
	FrequencyPenalty float64
}

// ChatSettingsFromConfig builds router settings from application configuration
func ChatSettingsFromConfig(cfg *config.Config) ChatSettings {
	return ChatSettings{
		SessionTimeout:   cfg.Chat.SessionTimeout,
		SweepEvery:       cfg.Chat.SweepEvery,
		HistoryWindow:    cfg.Chat.HistoryWindow,
		SearchLimit:      cfg.Chat.SearchLimit,
		Model:            cfg.OpenAI.Model,
		Temperature:      cfg.OpenAI.Temperature,
		MaxTokens:        cfg.OpenAI.MaxTokens,
		FrequencyPenalty: cfg.OpenAI.FrequencyPenalty,
	}
}

// DefaultChatSettings returns the router's stock tuning
func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		SessionTimeout:   time.Hour,
		SweepEvery:       10,
		HistoryWindow:    6,
		SearchLimit:      5,
		Model:            "gpt-3.5-turbo",
		Temperature:      0.7,
		MaxTokens:        150,
		FrequencyPenalty: 0.5,
	}
}

// ChatService routes chat messages: it records each turn in the caller's
// session, classifies the message and answers from a template, a provider
// lookup or the generative backend.
type ChatService struct {
	sessions   providers.SessionStore
	search     repositories.ProviderSearchRepository
	generator  providers.TextGenerationProvider
	classifier *IntentClassifier
	settings   ChatSettings
	metrics    *observability.Metrics

	now     func() time.Time
	newID   func() string
	created atomic.Uint64
}

// NewChatService creates a chat router. generator and metrics may be nil; without
// a generator every generative intent gets the technical-difficulty reply.
func NewChatService(
	sessions providers.SessionStore,
	search repositories.ProviderSearchRepository,
	generator providers.TextGenerationProvider,
	settings ChatSettings,
	metrics *observability.Metrics,
) *ChatService {
	defaults := DefaultChatSettings()
	if settings.SessionTimeout <= 0 {
		settings.SessionTimeout = defaults.SessionTimeout
	}
	if settings.SweepEvery <= 0 {
		settings.SweepEvery = defaults.SweepEvery
	}
	if settings.HistoryWindow <= 0 {
		settings.HistoryWindow = defaults.HistoryWindow
	}
	if settings.SearchLimit <= 0 {
		settings.SearchLimit = defaults.SearchLimit
	}

	return &ChatService{
		sessions:   sessions,
		search:     search,
		generator:  generator,
		classifier: NewIntentClassifier(),
		settings:   settings,
		metrics:    metrics,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SessionTimeout returns the idle lifetime of a session
func (s *ChatService) SessionTimeout() time.Duration {
	return s.settings.SessionTimeout
}

// HandleMessage processes one user message and returns the reply.
//
// An empty message is a validation error and touches no session. Session and
// provider store faults are returned as internal errors. Generative backend
// faults are absorbed into a fixed reply.
func (s *ChatService) HandleMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error) {
	ctx, span := observability.StartSpan(ctx, "ChatService.HandleMessage")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.NewValidationError(ReplyEmptyMessage)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = s.newID()
	}

	seed := []entities.Turn{{Role: entities.RoleSystem, Content: SystemPrompt}}
	session, created, err := s.sessions.Append(ctx, sessionID, s.now(), seed,
		entities.Turn{Role: entities.RoleUser, Content: req.Message})
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to record user turn", err)
	}
	if created {
		s.onSessionCreated(ctx)
	}

	intent := s.classifier.Classify(utils.NormalizeText(req.Message))
	observability.SetSpanAttributes(span,
		attribute.String("chat.intent", string(intent)),
		attribute.Bool("chat.session_created", created),
	)
	observability.RecordChatIntent(ctx, s.metrics, string(intent))

	reply, err := s.dispatch(ctx, intent, req, session)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Str("intent", string(intent)).Str("session_id", sessionID).Msg("chat dispatch failed")
		return nil, err
	}

	if _, _, err := s.sessions.Append(ctx, sessionID, s.now(), seed,
		entities.Turn{Role: entities.RoleAssistant, Content: reply}); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to record assistant turn", err)
	}

	logger.Debug().Str("intent", string(intent)).Str("session_id", sessionID).Msg("chat message routed")

	return &entities.ChatResponse{
		SessionID: sessionID,
		Reply:     reply,
		Intent:    intent,
	}, nil
}

func (s *ChatService) dispatch(ctx context.Context, intent entities.Intent, req entities.ChatRequest, session *entities.Session) (string, error) {
	if reply, ok := directReplies[intent]; ok {
		return reply, nil
	}

	switch intent {
	case entities.IntentProvider:
		return s.lookupProviders(ctx, req)
	default:
		// unknown, pregnancy and orientation
		return s.generate(ctx, intent, session), nil
	}
}

func (s *ChatService) lookupProviders(ctx context.Context, req entities.ChatRequest) (string, error) {
	term := utils.NormalizeText(req.Message)

	results, err := s.search.SearchText(ctx, term, s.settings.SearchLimit)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperrors.NewInternalError("provider lookup failed", err)
	}
	if len(results) > s.settings.SearchLimit {
		results = results[:s.settings.SearchLimit]
	}

	origin := req.UserLocation
	if !origin.Valid() {
		origin = nil
	}

	return FormatProviderReply(req.Message, RankProviders(results, origin)), nil
}

func (s *ChatService) generate(ctx context.Context, intent entities.Intent, session *entities.Session) string {
	logger := observability.LoggerFromContext(ctx)

	if s.generator == nil {
		logger.Warn().Str("intent", string(intent)).Msg("no text generation provider configured")
		observability.RecordGenerativeFallback(ctx, s.metrics, string(intent), false)
		return ReplyGenerativeFailure
	}

	reply, err := s.generator.Complete(ctx, providers.CompletionRequest{
		Messages:         session.RecentHistory(s.settings.HistoryWindow),
		Model:            s.settings.Model,
		Temperature:      s.settings.Temperature,
		MaxTokens:        s.settings.MaxTokens,
		FrequencyPenalty: s.settings.FrequencyPenalty,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		logger.Error().Err(err).Str("intent", string(intent)).Str("session_id", session.ID).Msg("text generation failed")
		observability.RecordGenerativeFallback(ctx, s.metrics, string(intent), false)
		return ReplyGenerativeFailure
	}

	observability.RecordGenerativeFallback(ctx, s.metrics, string(intent), true)
	return reply
}

func (s *ChatService) onSessionCreated(ctx context.Context) {
	observability.RecordSessionCreated(ctx, s.metrics)

	if s.created.Add(1)%uint64(s.settings.SweepEvery) != 0 {
		return
	}
	if _, err := s.SweepExpired(ctx, SweepTriggerInline); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("inline session sweep failed")
	}
}

// SweepExpired removes every session idle for longer than the session timeout
func (s *ChatService) SweepExpired(ctx context.Context, trigger string) (int, error) {
	cutoff := s.now().Add(-s.settings.SessionTimeout)

	removed, err := s.sessions.SweepExpired(ctx, cutoff)
	if err != nil {
		return removed, err
	}

	observability.RecordSessionsSwept(ctx, s.metrics, trigger, removed)
	if removed > 0 {
		observability.LoggerFromContext(ctx).Info().Int("removed", removed).Str("trigger", trigger).Msg("expired chat sessions swept")
	}
	return removed, nil
}
