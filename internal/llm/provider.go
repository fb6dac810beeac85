package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/upstream"
)

// Kind identifica el formato de wire del proveedor configurado.
type Kind string

const (
	KindGemini           Kind = "gemini"
	KindOpenAICompatible Kind = "openai_compatible"
	KindHuggingFace      Kind = "huggingface"
)

const (
	requestTimeout = 60 * time.Second

	temperature     = 0.7
	maxOutputTokens = 1024

	// Ventanas de historial enviadas al proveedor (control de costo de contexto).
	structuredHistoryLimit = 10
	promptHistoryLimit     = 5
)

var (
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrMisconfigured       = errors.New("llm provider misconfigured")
	ErrEmptyMessage        = errors.New("message cannot be empty")
)

// Provider genera la respuesta del asistente a partir del mensaje nuevo y el historial previo.
type Provider interface {
	GetResponse(ctx context.Context, message string, history []domain.Message) (string, error)
	Kind() Kind
}

// Config es la configuracion inmutable de un proveedor.
type Config struct {
	Kind              Kind
	APIKey            string
	APIURL            string
	Model             string
	SystemInstruction string
}

var defaultURLs = map[Kind]string{
	KindGemini:           "https://generativelanguage.googleapis.com/v1beta",
	KindOpenAICompatible: "http://localhost:11434/v1",
	KindHuggingFace:      "https://api-inference.huggingface.co",
}

var defaultModels = map[Kind]string{
	KindGemini:           "gemini-2.5-flash-lite",
	KindOpenAICompatible: "llama3.2",
	KindHuggingFace:      "meta-llama/Llama-3.2-3B-Instruct",
}

// ParseKind normaliza el nombre del proveedor. Devuelve ErrUnsupportedProvider si no existe.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := defaultURLs[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
	return k, nil
}

// WithDefaults completa URL y modelo segun el proveedor, solo si no vienen configurados.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = defaultURLs[c.Kind]
	}
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModels[c.Kind]
	}
	c.SystemInstruction = strings.TrimSpace(c.SystemInstruction)
	return c
}

// New construye el Provider para cfg.Kind. Un Kind desconocido falla aca, no en cada llamada.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind, err := ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	cfg.Kind = kind
	cfg = cfg.WithDefaults()

	logger.Info("llm provider initialized",
		zap.String("provider", string(cfg.Kind)),
		zap.String("model", cfg.Model),
		zap.String("api_key", upstream.MaskKey(cfg.APIKey)),
		zap.String("url", cfg.APIURL),
	)

	switch cfg.Kind {
	case KindGemini:
		return newGeminiProvider(cfg, logger), nil
	case KindOpenAICompatible:
		return newOpenAIProvider(cfg, logger), nil
	default:
		return newHuggingFaceProvider(cfg, logger), nil
	}
}

func lastN(history []domain.Message, n int) []domain.Message {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func validateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	return nil
}
