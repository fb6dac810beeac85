package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"convo-proxy/internal/domain"
)

// SessionRepository guarda el historial de cada sesion mientras viva el proceso.
//
// Ninguna operacion falla por "no encontrado": un id desconocido equivale a una
// conversacion vacia y AddMessage lo crea implicitamente.
type SessionRepository interface {
	CreateSession() string
	AddMessage(sessionID string, role domain.Role, content string)
	History(sessionID string) []domain.Message
	AllSessions() map[string][]domain.Message
	ClearSession(sessionID string)
	Count() int
}

// MemorySessionRepository implementa SessionRepository en memoria.
// Se construye al arrancar el proceso y se descarta al apagarlo; no persiste nada.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Message
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

func NewMemorySessionRepository(logger *zap.Logger) *MemorySessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySessionRepository{
		sessions: make(map[string][]domain.Message),
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (r *MemorySessionRepository) CreateSession() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = r.newID()
	}
	r.sessions[id] = []domain.Message{}
	r.logger.Info("session created", zap.String("session_id", id))
	return id
}

func (r *MemorySessionRepository) AddMessage(sessionID string, role domain.Role, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = append(r.sessions[sessionID], domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: r.now(),
	})
	r.logger.Debug("message added", zap.String("session_id", sessionID), zap.String("role", string(role)))
}

// History devuelve una copia; modificarla no afecta al repositorio.
func (r *MemorySessionRepository) History(sessionID string) []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages, ok := r.sessions[sessionID]
	if !ok {
		r.logger.Debug("session not found, returning empty history", zap.String("session_id", sessionID))
		return []domain.Message{}
	}
	return cloneMessages(messages)
}

func (r *MemorySessionRepository) AllSessions() map[string][]domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]domain.Message, len(r.sessions))
	for id, messages := range r.sessions {
		out[id] = cloneMessages(messages)
	}
	return out
}

func (r *MemorySessionRepository) ClearSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	r.sessions[sessionID] = []domain.Message{}
	r.logger.Info("session cleared", zap.String("session_id", sessionID))
}

func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func cloneMessages(in []domain.Message) []domain.Message {
	out := make([]domain.Message, len(in))
	copy(out, in)
	return out
}
