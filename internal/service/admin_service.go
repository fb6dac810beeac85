package service

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/repository"
)

var ErrAdminServiceNotConfigured = errors.New("admin service not configured")

var csvHeader = []string{"session_hash", "message_index", "role", "content", "timestamp"}

// ExportDocument es el cuerpo de la descarga JSON.
type ExportDocument struct {
	ExportedAt    time.Time                       `json:"exported_at"`
	Stats         domain.Stats                    `json:"stats"`
	Conversations []domain.AnonymizedConversation `json:"conversations"`
}

// AdminService arma estadisticas y exportaciones anonimizadas. Los ids crudos nunca salen de aca.
type AdminService struct {
	sessions repository.SessionRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewAdminService(sessions repository.SessionRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HashSessionID es determinista y de un solo sentido: BLAKE2b-256, hex de los primeros 16 bytes.
func HashSessionID(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:16])
}

func (s *AdminService) Stats() (domain.Stats, error) {
	if s == nil || s.sessions == nil {
		return domain.Stats{}, ErrAdminServiceNotConfigured
	}
	return s.stats(s.sessions.AllSessions()), nil
}

func (s *AdminService) stats(all map[string][]domain.Message) domain.Stats {
	st := domain.Stats{TotalSessions: len(all), GeneratedAt: s.now()}
	for _, msgs := range all {
		st.TotalMessages += len(msgs)
		for _, m := range msgs {
			switch m.Role {
			case domain.RoleUser:
				st.UserMessages++
			case domain.RoleAssistant:
				st.AssistantMessages++
			}
		}
	}
	if st.TotalSessions > 0 {
		st.AverageMessagesPerSession = float64(st.TotalMessages) / float64(st.TotalSessions)
	}
	return st
}

// AnonymizedConversations devuelve todas las sesiones ordenadas por hash.
func (s *AdminService) AnonymizedConversations() ([]domain.AnonymizedConversation, error) {
	if s == nil || s.sessions == nil {
		return nil, ErrAdminServiceNotConfigured
	}
	return anonymize(s.sessions.AllSessions()), nil
}

func anonymize(all map[string][]domain.Message) []domain.AnonymizedConversation {
	out := make([]domain.AnonymizedConversation, 0, len(all))
	for id, msgs := range all {
		out = append(out, domain.AnonymizedConversation{
			SessionHash:   HashSessionID(id),
			Messages:      msgs,
			TotalMessages: len(msgs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionHash < out[j].SessionHash })
	return out
}

func (s *AdminService) ExportJSON() (ExportDocument, error) {
	if s == nil || s.sessions == nil {
		return ExportDocument{}, ErrAdminServiceNotConfigured
	}
	all := s.sessions.AllSessions()
	doc := ExportDocument{
		ExportedAt:    s.now(),
		Stats:         s.stats(all),
		Conversations: anonymize(all),
	}
	s.logger.Info("json export generated", zap.Int("sessions", len(doc.Conversations)))
	return doc, nil
}

// ExportCSV escribe una fila por mensaje.
func (s *AdminService) ExportCSV(w io.Writer) error {
	if s == nil || s.sessions == nil {
		return ErrAdminServiceNotConfigured
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	convs := anonymize(s.sessions.AllSessions())
	rows := 0
	for _, conv := range convs {
		for i, m := range conv.Messages {
			record := []string{
				conv.SessionHash,
				strconv.Itoa(i),
				string(m.Role),
				m.Content,
				m.Timestamp.UTC().Format(time.RFC3339Nano),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			rows++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	s.logger.Info("csv export generated", zap.Int("sessions", len(convs)), zap.Int("rows", rows))
	return nil
}
