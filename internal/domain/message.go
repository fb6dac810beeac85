package domain

import "time"

// Role identifica al autor de un mensaje dentro de una conversacion.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message es un turno de conversacion. Inmutable una vez agregado a la sesion.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
