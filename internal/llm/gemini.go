package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/upstream"
)

type geminiProvider struct {
	cfg    Config
	client *upstream.Client
	logger *zap.Logger
}

func newGeminiProvider(cfg Config, logger *zap.Logger) *geminiProvider {
	return &geminiProvider{
		cfg:    cfg,
		client: upstream.NewClient("Gemini", requestTimeout, logger),
		logger: logger,
	}
}

func (p *geminiProvider) Kind() Kind { return KindGemini }

func (p *geminiProvider) GetResponse(ctx context.Context, message string, history []domain.Message) (string, error) {
	if err := validateMessage(message); err != nil {
		return "", err
	}
	if p.cfg.APIKey == "" {
		p.logger.Error("gemini api key is not configured")
		return "", fmt.Errorf("%w: gemini API key is not configured, set GOOGLE_ADK_API_KEY or LLM_API_KEY", ErrMisconfigured)
	}

	payload := p.buildRequest(message, history)
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?%s",
		p.cfg.APIURL, url.PathEscape(p.cfg.Model), url.Values{"key": {p.cfg.APIKey}}.Encode())

	p.logger.Debug("gemini request", zap.String("model", p.cfg.Model), zap.Int("contents", len(payload.Contents)))

	raw, err := p.client.PostJSON(ctx, endpoint, nil, payload)
	if err != nil {
		return "", p.describeError(err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", upstream.Unparseable("gemini", err.Error())
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", upstream.Unparseable("gemini", "could not parse Gemini response")
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == nil || *text == "" {
		return "", upstream.Unparseable("gemini", "could not parse Gemini response")
	}
	return *text, nil
}

func (p *geminiProvider) buildRequest(message string, history []domain.Message) geminiRequest {
	recent := lastN(history, structuredHistoryLimit)
	contents := make([]geminiContent, 0, len(recent)+1)
	for _, m := range recent {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: strings.TrimSpace(message)}}})

	req := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	if p.cfg.SystemInstruction != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.cfg.SystemInstruction}}}
	}
	return req
}

// describeError reemplaza el body crudo por error.message y agrega una pista si el modelo no existe.
func (p *geminiProvider) describeError(err error) error {
	var ue *upstream.Error
	if !errors.As(err, &ue) || ue.StatusCode == 0 {
		return err
	}

	detail := ue.Body
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(ue.Body), &body) == nil && body.Error != nil && body.Error.Message != "" {
		detail = body.Error.Message
	}
	if ue.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(detail), "not found") {
		detail += fmt.Sprintf(" (model %q is not available; try gemini-2.5-flash-lite, gemini-2.5-flash or gemini-1.5-pro via GOOGLE_ADK_MODEL_NAME)", p.cfg.Model)
	}
	p.logger.Error("gemini api error", zap.Int("status", ue.StatusCode), zap.String("detail", detail), zap.String("model", p.cfg.Model))
	return &upstream.Error{Service: ue.Service, StatusCode: ue.StatusCode, Body: detail}
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
