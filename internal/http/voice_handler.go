package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"convo-proxy/internal/service"
)

const maxAudioBytes = 25 << 20

type VoiceHandler struct {
	logger *zap.Logger
	voice  *service.VoiceService
}

func NewVoiceHandler(logger *zap.Logger, voice *service.VoiceService) *VoiceHandler {
	return &VoiceHandler{logger: logger, voice: voice}
}

// Transcribe maneja POST /api/voice/transcribe (multipart, campo "audio").
func (h *VoiceHandler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		h.logger.Warn("invalid transcribe request", zap.Error(err))
		writeDetail(c, http.StatusBadRequest, "audio file is required")
		return
	}
	if fh.Size > maxAudioBytes {
		writeDetail(c, http.StatusRequestEntityTooLarge, "audio file is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("open audio upload failed", zap.Error(err))
		writeDetail(c, http.StatusBadRequest, "could not read audio file")
		return
	}
	defer f.Close()

	audio, err := io.ReadAll(io.LimitReader(f, maxAudioBytes))
	if err != nil {
		h.logger.Error("read audio upload failed", zap.Error(err))
		writeDetail(c, http.StatusBadRequest, "could not read audio file")
		return
	}

	h.logger.Info("audio received",
		zap.String("filename", fh.Filename),
		zap.String("content_type", fh.Header.Get("Content-Type")),
		zap.Int("bytes", len(audio)),
	)

	text, err := h.voice.Transcribe(c.Request.Context(), audio)
	if err != nil {
		h.logger.Error("transcription failed", zap.Error(err))
		writeError(c, "Error transcribing audio", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcription": text,
		"status":        "success",
	})
}

// Synthesize maneja POST /api/voice/synthesize. Sin audio disponible responde audio_url null.
func (h *VoiceHandler) Synthesize(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeDetail(c, http.StatusBadRequest, "Text is required")
		return
	}

	url, ok, err := h.voice.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		h.logger.Error("synthesis failed", zap.Error(err))
		writeError(c, "Error synthesizing text", err)
		return
	}

	var audioURL *string
	if ok {
		audioURL = &url
	}
	c.JSON(http.StatusOK, gin.H{
		"audio_url": audioURL,
		"status":    "success",
	})
}
