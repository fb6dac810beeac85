package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/upstream"
)

type huggingFaceProvider struct {
	cfg    Config
	client *upstream.Client
	logger *zap.Logger
}

func newHuggingFaceProvider(cfg Config, logger *zap.Logger) *huggingFaceProvider {
	return &huggingFaceProvider{
		cfg:    cfg,
		client: upstream.NewClient("Hugging Face", requestTimeout, logger),
		logger: logger,
	}
}

func (p *huggingFaceProvider) Kind() Kind { return KindHuggingFace }

func (p *huggingFaceProvider) GetResponse(ctx context.Context, message string, history []domain.Message) (string, error) {
	if err := validateMessage(message); err != nil {
		return "", err
	}

	payload := huggingFaceRequest{
		Inputs: p.buildPrompt(message, history),
		Parameters: huggingFaceParameters{
			Temperature:    temperature,
			MaxNewTokens:   maxOutputTokens,
			ReturnFullText: false,
		},
	}

	var headers map[string]string
	if p.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	}

	raw, err := p.client.PostJSON(ctx, fmt.Sprintf("%s/models/%s", p.cfg.APIURL, p.cfg.Model), headers, payload)
	if err != nil {
		return "", err
	}
	return parseHuggingFaceResponse(raw)
}

// buildPrompt aplana el historial como "Role: content" por linea y cierra con el turno del asistente.
func (p *huggingFaceProvider) buildPrompt(message string, history []domain.Message) string {
	var sb strings.Builder
	if p.cfg.SystemInstruction != "" {
		sb.WriteString(fmt.Sprintf("System: %s\n\n", p.cfg.SystemInstruction))
	}
	for _, m := range lastN(history, promptHistoryLimit) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", capitalize(string(m.Role)), m.Content))
	}
	sb.WriteString(fmt.Sprintf("User: %s\nAssistant:", message))
	return sb.String()
}

// parseHuggingFaceResponse acepta tanto [{"generated_text": ...}] como {"generated_text": ...}.
func parseHuggingFaceResponse(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	var first huggingFaceResult

	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var results []huggingFaceResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return "", upstream.Unparseable("huggingface", err.Error())
		}
		if len(results) == 0 {
			return "", upstream.Unparseable("huggingface", "empty result list")
		}
		first = results[0]
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &first); err != nil {
			return "", upstream.Unparseable("huggingface", err.Error())
		}
	default:
		return "", upstream.Unparseable("huggingface", "could not parse Hugging Face response")
	}

	text := first.GeneratedText
	if text == nil {
		text = first.Text
	}
	if text == nil || strings.TrimSpace(*text) == "" {
		return "", upstream.Unparseable("huggingface", "could not parse Hugging Face response")
	}
	return strings.TrimSpace(*text), nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

type huggingFaceResult struct {
	GeneratedText *string `json:"generated_text"`
	Text          *string `json:"text"`
}
