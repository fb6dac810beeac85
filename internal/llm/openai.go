package llm

import (
	"context"
	"errors"
	"net/http"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/upstream"
)

const openAIService = "OpenAI-compatible"

// openAIProvider habla con cualquier endpoint /chat/completions (Ollama, vLLM, Together AI...).
type openAIProvider struct {
	cfg    Config
	client oai.Client
	logger *zap.Logger
}

func newOpenAIProvider(cfg Config, logger *zap.Logger) *openAIProvider {
	reqOpts := []option.RequestOption{
		option.WithBaseURL(cfg.APIURL + "/"),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	}
	// Modelos locales pueden no requerir key; sin key no se envia Authorization.
	// NewClient aplica antes OPENAI_API_KEY y OPENAI_ORG_ID/OPENAI_PROJECT_ID del entorno,
	// por eso se borran esos headers explicitamente.
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	} else {
		reqOpts = append(reqOpts, option.WithHeaderDel("authorization"))
	}
	reqOpts = append(reqOpts,
		option.WithHeaderDel("openai-organization"),
		option.WithHeaderDel("openai-project"),
	)
	return &openAIProvider{
		cfg:    cfg,
		client: oai.NewClient(reqOpts...),
		logger: logger,
	}
}

func (p *openAIProvider) Kind() Kind { return KindOpenAICompatible }

func (p *openAIProvider) GetResponse(ctx context.Context, message string, history []domain.Message) (string, error) {
	if err := validateMessage(message); err != nil {
		return "", err
	}

	var httpResp *http.Response
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(message, history), option.WithResponseInto(&httpResp))
	if err != nil {
		return "", p.describeError(err, httpResp)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", upstream.Unparseable("openai_compatible", "could not parse OpenAI-compatible response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAIProvider) buildParams(message string, history []domain.Message) oai.ChatCompletionNewParams {
	recent := lastN(history, structuredHistoryLimit)
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(recent)+2)
	if p.cfg.SystemInstruction != "" {
		messages = append(messages, oai.SystemMessage(p.cfg.SystemInstruction))
	}
	for _, m := range recent {
		messages = append(messages, convertMessage(m))
	}
	messages = append(messages, oai.UserMessage(message))

	return oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.cfg.Model),
		Messages:    messages,
		Temperature: param.NewOpt(temperature),
		MaxTokens:   param.NewOpt(int64(maxOutputTokens)),
	}
}

func convertMessage(m domain.Message) oai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case domain.RoleAssistant:
		return oai.AssistantMessage(m.Content)
	case domain.RoleSystem:
		return oai.SystemMessage(m.Content)
	default:
		return oai.UserMessage(m.Content)
	}
}

// describeError separa status de error, 2xx con body ilegible y fallas de transporte.
func (p *openAIProvider) describeError(err error, httpResp *http.Response) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if detail == "" {
			detail = http.StatusText(apiErr.StatusCode)
		}
		p.logger.Error("openai-compatible api error", zap.Int("status", apiErr.StatusCode), zap.String("detail", detail))
		return &upstream.Error{Service: openAIService, StatusCode: apiErr.StatusCode, Body: detail}
	}
	if httpResp != nil && httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		p.logger.Error("openai-compatible response could not be decoded", zap.Int("status", httpResp.StatusCode), zap.Error(err))
		return upstream.Unparseable("openai_compatible", err.Error())
	}
	p.logger.Error("openai-compatible request failed", zap.Error(err))
	return &upstream.Error{Service: openAIService, Err: err}
}
