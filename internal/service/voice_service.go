package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"convo-proxy/internal/metrics"
	"convo-proxy/internal/stt"
)

var (
	ErrVoiceServiceNotConfigured = errors.New("voice service not configured")
	ErrVoiceInvalidInput         = errors.New("voice invalid input")
)

const sttProvider = "hume"

type VoiceService struct {
	transcriber stt.Transcriber
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewVoiceService(transcriber stt.Transcriber, m *metrics.Metrics, logger *zap.Logger) *VoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoiceService{transcriber: transcriber, metrics: m, logger: logger}
}

func (s *VoiceService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if s == nil || s.transcriber == nil {
		return "", ErrVoiceServiceNotConfigured
	}
	if len(audio) == 0 {
		return "", ErrVoiceInvalidInput
	}

	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, audio)
	s.metrics.RecordProviderCall(ctx, sttProvider, "stt", time.Since(start), err)
	if err != nil {
		return "", err
	}
	s.logger.Info("transcription ready", zap.Int("audio_bytes", len(audio)), zap.String("preview", Preview(text)))
	return text, nil
}

// Synthesize degrada en silencio: sin audio devuelve ok=false y ningun error.
func (s *VoiceService) Synthesize(ctx context.Context, text string) (string, bool, error) {
	if s == nil || s.transcriber == nil {
		return "", false, ErrVoiceServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return "", false, ErrVoiceInvalidInput
	}
	s.logger.Info("synthesizing text", zap.String("preview", Preview(text)))
	url, ok := s.transcriber.Synthesize(ctx, text)
	return url, ok, nil
}
