package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"convo-proxy/internal/llm"
	"convo-proxy/internal/service"
)

// statusForError: errores de validacion son 400; todo lo demas (upstream, parseo, capacidad) es 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrChatInvalidInput),
		errors.Is(err, service.ErrVoiceInvalidInput),
		errors.Is(err, llm.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// writeError responde {"detail": "<prefix>: <err>"} con el status que corresponde a err.
func writeError(c *gin.Context, prefix string, err error) {
	writeDetail(c, statusForError(err), fmt.Sprintf("%s: %v", prefix, err))
}
