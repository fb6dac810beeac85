package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"convo-proxy/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de chat e historial.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat}
}

// PostChat maneja POST /api/chat.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		writeDetail(c, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.chat.Chat(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("chat failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(c, "Error processing message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":   res.Response,
		"session_id": res.SessionID,
		"timestamp":  res.Timestamp,
	})
}

// GetConversation maneja GET /api/conversations/:session_id.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	sessionID := c.Param("session_id")
	history := h.chat.History(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"session_id":     sessionID,
		"messages":       history,
		"total_messages": len(history),
	})
}
