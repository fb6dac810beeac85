package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"convo-proxy/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.hume.ai"

	requestTimeout      = 30 * time.Second
	defaultPollInterval = time.Second
	defaultPollAttempts = 10
	apiKeyHeader        = "X-Hume-Api-Key"
	previewRunes        = 50
)

const unavailableDetail = "Hume.ai does not provide a simple transcription endpoint. " +
	"For speech-to-text consider the browser Web Speech API, Google Cloud Speech-to-Text, " +
	"OpenAI Whisper or AssemblyAI"

// Transcriber convierte audio en texto. Synthesize es best-effort.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text string) (string, bool)
}

// strategy intenta una via de transcripcion. next=true pasa a la siguiente estrategia.
type strategy struct {
	name string
	run  func(ctx context.Context, audio []byte) (text string, next bool, err error)
}

// Client habla con una API estilo Hume: transcripcion batch, jobs asincronos y sintesis.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
	logger  *zap.Logger

	// PollInterval y PollAttempts controlan el polling de jobs.
	PollInterval time.Duration
	PollAttempts int
}

func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:       apiKey,
		http:         upstream.NewClient("Hume.ai", requestTimeout, logger),
		logger:       logger,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}
	logger.Info("stt client initialized",
		zap.String("api_key", upstream.MaskKey(apiKey)),
		zap.String("url", c.baseURL),
	)
	return c
}

// Transcribe recorre las estrategias en orden. Si ninguna produce texto devuelve ErrCapabilityUnavailable.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio cannot be empty")
	}

	for _, s := range c.strategies() {
		text, next, err := s.run(ctx, audio)
		if err != nil {
			c.logger.Error("transcription failed", zap.String("strategy", s.name), zap.Error(err))
			return "", err
		}
		if !next {
			c.logger.Info("audio transcribed",
				zap.String("strategy", s.name),
				zap.String("preview", preview(text)),
			)
			return text, nil
		}
		c.logger.Warn("transcription strategy unavailable, trying next", zap.String("strategy", s.name))
	}
	return "", fmt.Errorf("%w: %s", upstream.ErrCapabilityUnavailable, unavailableDetail)
}

func (c *Client) strategies() []strategy {
	return []strategy{
		{name: "batch", run: c.transcribeBatch},
		{name: "job", run: c.transcribeJob},
	}
}

// transcribeBatch: 404 o un 200 sin texto pasan a la siguiente estrategia; otro error corta.
func (c *Client) transcribeBatch(ctx context.Context, audio []byte) (string, bool, error) {
	raw, err := c.postAudio(ctx, c.baseURL+"/v0/batch/transcriptions", audio)
	if err != nil {
		if upstream.StatusCode(err) == http.StatusNotFound {
			return "", true, nil
		}
		return "", false, err
	}

	var body transcriptionResult
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Warn("batch transcription response is not json", zap.Error(err))
		return "", true, nil
	}
	if text := body.text(); text != "" {
		return text, false, nil
	}
	return "", true, nil
}

// transcribeJob solo devuelve error si ctx se cancela; cualquier otra falla se registra
// y pasa a la siguiente estrategia.
func (c *Client) transcribeJob(ctx context.Context, audio []byte) (string, bool, error) {
	raw, err := c.postAudio(ctx, c.baseURL+"/v0/jobs", audio)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, c.cancelled(ctx)
		}
		c.logger.Warn("job submission failed", zap.Error(err))
		return "", true, nil
	}

	var job jobStatus
	if err := json.Unmarshal(raw, &job); err != nil {
		c.logger.Warn("job submission response is not json", zap.Error(err))
		return "", true, nil
	}
	if job.Status == "completed" {
		if text := job.text(); text != "" {
			return text, false, nil
		}
	}
	id := job.id()
	if id == "" {
		c.logger.Warn("job submission returned no id")
		return "", true, nil
	}

	interval, attempts := c.pollSettings()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			c.logger.Warn("job polling cancelled", zap.String("job_id", id), zap.Error(ctx.Err()))
			return "", false, c.cancelled(ctx)
		case <-ticker.C:
		}

		status, err := c.jobStatus(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, c.cancelled(ctx)
			}
			c.logger.Warn("job status request failed", zap.String("job_id", id), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		switch status.Status {
		case "completed":
			if text := status.text(); text != "" {
				return text, false, nil
			}
		case "failed":
			c.logger.Warn("transcription job failed", zap.String("job_id", id))
			return "", true, nil
		}
	}
	return "", true, nil
}

// pollSettings usa los valores por defecto si PollInterval o PollAttempts no son positivos.
func (c *Client) pollSettings() (time.Duration, int) {
	interval, attempts := c.PollInterval, c.PollAttempts
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	return interval, attempts
}

func (c *Client) cancelled(ctx context.Context) error {
	return &upstream.Error{Service: c.http.Service(), Err: ctx.Err()}
}

func (c *Client) jobStatus(ctx context.Context, id string) (jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v0/jobs/"+id, nil)
	if err != nil {
		return jobStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	raw, err := c.http.Do(req)
	if err != nil {
		return jobStatus{}, err
	}
	var status jobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return jobStatus{}, upstream.Unparseable("hume", err.Error())
	}
	return status, nil
}

func (c *Client) postAudio(ctx context.Context, url string, audio []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="audio.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(apiKeyHeader, c.apiKey)
	return c.http.Do(req)
}

// Synthesize pide audio para text. Cualquier falla devuelve ("", false).
func (c *Client) Synthesize(ctx context.Context, text string) (string, bool) {
	payload := map[string]string{"text": text, "voice": "default"}
	raw, err := c.http.PostJSON(ctx, c.baseURL+"/v0/evi/synthesize", map[string]string{apiKeyHeader: c.apiKey}, payload)
	if err != nil {
		c.logger.Warn("text to speech not available", zap.Int("status", upstream.StatusCode(err)), zap.Error(err))
		return "", false
	}

	var body struct {
		AudioURL string `json:"audio_url"`
		URL      string `json:"url"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Warn("synthesize response is not json", zap.Error(err))
		return "", false
	}
	audioURL := body.AudioURL
	if audioURL == "" {
		audioURL = body.URL
	}
	if audioURL == "" {
		c.logger.Warn("synthesize response has no audio url")
		return "", false
	}
	c.logger.Info("text synthesized")
	return audioURL, true
}

type transcriptionResult struct {
	Transcription string `json:"transcription"`
	Text          string `json:"text"`
	Transcript    string `json:"transcript"`
}

func (r transcriptionResult) text() string {
	for _, s := range []string{r.Transcription, r.Text, r.Transcript} {
		if s != "" {
			return s
		}
	}
	return ""
}

type jobStatus struct {
	JobID         string `json:"job_id"`
	ID            string `json:"id"`
	Status        string `json:"status"`
	Transcription string `json:"transcription"`
	Text          string `json:"text"`
}

func (j jobStatus) id() string {
	if j.JobID != "" {
		return j.JobID
	}
	return j.ID
}

func (j jobStatus) text() string {
	if j.Transcription != "" {
		return j.Transcription
	}
	return j.Text
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
