package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/llm"
	"convo-proxy/internal/metrics"
	"convo-proxy/internal/repository"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrChatInvalidInput         = errors.New("message cannot be empty")
)

// ChatResult es la respuesta de un turno de chat.
type ChatResult struct {
	Response  string
	SessionID string
	Timestamp time.Time
}

// ChatService orquesta un turno: sesion, historial previo, proveedor y registro de ambos mensajes.
type ChatService struct {
	sessions repository.SessionRepository
	provider llm.Provider
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(sessions repository.SessionRepository, provider llm.Provider, m *metrics.Metrics, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		sessions: sessions,
		provider: provider,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Chat no es transaccional: si el proveedor falla, el mensaje del usuario queda registrado sin respuesta.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (ChatResult, error) {
	if s == nil || s.sessions == nil || s.provider == nil {
		return ChatResult{}, ErrChatServiceNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, ErrChatInvalidInput
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.sessions.CreateSession()
		s.metrics.RecordSessionCreated(ctx)
		s.logger.Info("session created", zap.String("session_id", sessionID))
	}

	s.logger.Info("chat message received",
		zap.String("session_id", sessionID),
		zap.String("preview", Preview(message)),
	)

	prior := s.sessions.History(sessionID)
	s.sessions.AddMessage(sessionID, domain.RoleUser, message)

	start := time.Now()
	reply, err := s.provider.GetResponse(ctx, message, prior)
	s.metrics.RecordProviderCall(ctx, string(s.provider.Kind()), "llm", time.Since(start), err)
	if err != nil {
		s.logger.Error("llm provider failed",
			zap.String("session_id", sessionID),
			zap.String("provider", string(s.provider.Kind())),
			zap.Error(err),
		)
		return ChatResult{}, err
	}

	s.sessions.AddMessage(sessionID, domain.RoleAssistant, reply)
	s.logger.Info("chat reply generated",
		zap.String("session_id", sessionID),
		zap.String("preview", Preview(reply)),
	)

	return ChatResult{
		Response:  reply,
		SessionID: sessionID,
		Timestamp: s.now(),
	}, nil
}

// History devuelve el historial de una sesion; una sesion desconocida devuelve vacio.
func (s *ChatService) History(sessionID string) []domain.Message {
	if s == nil || s.sessions == nil {
		return []domain.Message{}
	}
	return s.sessions.History(strings.TrimSpace(sessionID))
}

const previewRunes = 50

// Preview recorta texto para logs.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
