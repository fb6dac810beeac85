package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// Client ejecuta requests HTTP contra un servicio remoto y normaliza sus errores.
type Client struct {
	service string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(service string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		service: service,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Service devuelve el nombre usado en logs y errores.
func (c *Client) Service() string {
	return c.service
}

// PostJSON serializa payload, lo envia con los headers dados y devuelve el body crudo.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// Do ejecuta req. Cualquier status fuera de 2xx o falla de transporte devuelve *Error.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("service", c.service),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, &Error{Service: c.service, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("upstream error status",
			zap.String("service", c.service),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("upstream response",
		zap.String("service", c.service),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)
	return buf, nil
}
