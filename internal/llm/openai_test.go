package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"convo-proxy/internal/domain"
	"convo-proxy/internal/upstream"
)

type capturedChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func newOpenAIForTest(t *testing.T, handler http.HandlerFunc, cfg Config) Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.Kind = KindOpenAICompatible
	cfg.APIURL = server.URL + "/v1"
	p, err := New(cfg, nil)
	require.NoError(t, err)
	return p
}

func TestOpenAI_RoundTripTruncatesAndPrependsSystem(t *testing.T) {
	var captured capturedChatRequest
	var authHeader string
	p := newOpenAIForTest(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama3.2","choices":[{"index":0,"message":{"role":"assistant","content":"fixed reply"},"finish_reason":"stop"}]}`)
	}, Config{APIKey: "sk-local-123456", Model: "llama3.2", SystemInstruction: "be brief"})

	history := makeHistory(12)
	got, err := p.GetResponse(context.Background(), "new message", history)
	require.NoError(t, err)
	require.Equal(t, "fixed reply", got)
	require.Equal(t, "Bearer sk-local-123456", authHeader)

	require.Equal(t, "llama3.2", captured.Model)
	require.Equal(t, 0.7, captured.Temperature)
	require.Equal(t, 1024, captured.MaxTokens)
	require.Len(t, captured.Messages, 12)

	require.Equal(t, "system", captured.Messages[0].Role)
	require.Equal(t, "be brief", captured.Messages[0].Content)
	for i, m := range captured.Messages[1:11] {
		src := history[2+i]
		require.Equal(t, string(src.Role), m.Role)
		require.Equal(t, src.Content, m.Content)
	}
	require.Equal(t, "user", captured.Messages[11].Role)
	require.Equal(t, "new message", captured.Messages[11].Content)
}

func TestOpenAI_NoKeyNoAuthorizationHeader(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-ambient-secret")
	t.Setenv("OPENAI_ORG_ID", "org-ambient")
	t.Setenv("OPENAI_PROJECT_ID", "proj-ambient")
	var authHeader, orgHeader, projectHeader string
	var captured capturedChatRequest
	p := newOpenAIForTest(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		orgHeader = r.Header.Get("OpenAI-Organization")
		projectHeader = r.Header.Get("OpenAI-Project")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}, Config{})

	got, err := p.GetResponse(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Empty(t, authHeader)
	require.Empty(t, orgHeader)
	require.Empty(t, projectHeader)
	require.Len(t, captured.Messages, 1)
}

func TestOpenAI_MissingChoicesIsUnparseable(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"index":0,"message":{"role":"assistant"}}]}`} {
		body := body
		t.Run(body, func(t *testing.T) {
			p := newOpenAIForTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, body)
			}, Config{})

			got, err := p.GetResponse(context.Background(), "hello", nil)
			require.Error(t, err)
			require.True(t, errors.Is(err, upstream.ErrUnparseableResponse))
			require.Empty(t, got)
		})
	}
}

func TestOpenAI_UndecodableSuccessBodyIsUnparseable(t *testing.T) {
	p := newOpenAIForTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `<html>oops</html>`)
	}, Config{})

	got, err := p.GetResponse(context.Background(), "hello", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, upstream.ErrUnparseableResponse))
	require.False(t, errors.Is(err, upstream.ErrUpstream))
	require.Empty(t, got)
}

func TestOpenAI_TransportFailureIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p, err := New(Config{Kind: KindOpenAICompatible, APIURL: url + "/v1"}, nil)
	require.NoError(t, err)

	_, err = p.GetResponse(context.Background(), "hello", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, upstream.ErrUpstream))
	require.False(t, errors.Is(err, upstream.ErrUnparseableResponse))
	require.Equal(t, 0, upstream.StatusCode(err))
}

func TestOpenAI_ErrorStatusIsUpstreamError(t *testing.T) {
	calls := 0
	p := newOpenAIForTest(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"model is loading","type":"server_error"}}`)
	}, Config{})

	_, err := p.GetResponse(context.Background(), "hello", []domain.Message{{Role: domain.RoleUser, Content: "x"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, upstream.ErrUpstream))
	require.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode(err))
	require.Equal(t, 1, calls, "requests must not be retried")
}
