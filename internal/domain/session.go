package domain

import "time"

// AnonymizedConversation es una sesion exportada sin su id original.
type AnonymizedConversation struct {
	SessionHash   string    `json:"session_hash"`
	Messages      []Message `json:"messages"`
	TotalMessages int       `json:"total_messages"`
}

// Stats agrega conteos sobre todas las sesiones vivas.
type Stats struct {
	TotalSessions             int       `json:"total_sessions"`
	TotalMessages             int       `json:"total_messages"`
	UserMessages              int       `json:"user_messages"`
	AssistantMessages         int       `json:"assistant_messages"`
	AverageMessagesPerSession float64   `json:"average_messages_per_session"`
	GeneratedAt               time.Time `json:"generated_at"`
}
