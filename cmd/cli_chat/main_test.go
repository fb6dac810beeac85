package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"convo-proxy/internal/llm"
	"convo-proxy/internal/repository"
	"convo-proxy/internal/service"
)

func TestRunREPL_ChatResetAndHistory(t *testing.T) {
	repo := repository.NewMemorySessionRepository(nil)
	provider := &llm.MockProvider{Response: "hola humano"}
	svc := service.NewChatService(repo, provider, nil, nil)

	in := strings.NewReader("hola\n/historial\n/reset\n/historial\nsalir\n")
	var out bytes.Buffer
	if err := runREPL(context.Background(), in, &out, svc, repo); err != nil {
		t.Fatalf("runREPL: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Asistente > hola humano",
		"user: hola",
		"assistant: hola humano",
		"Sesion reiniciada.",
		"(sin mensajes)",
		"Saliendo del chat...",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
	if repo.Count() != 1 {
		t.Fatalf("expected a single session, got %d", repo.Count())
	}
}

func TestRunREPL_ProviderErrorKeepsLoopAlive(t *testing.T) {
	repo := repository.NewMemorySessionRepository(nil)
	provider := &llm.MockProvider{Err: errors.New("boom")}
	svc := service.NewChatService(repo, provider, nil, nil)

	in := strings.NewReader("hola\notra vez")
	var out bytes.Buffer
	if err := runREPL(context.Background(), in, &out, svc, repo); err != nil {
		t.Fatalf("runREPL: %v", err)
	}
	if strings.Count(out.String(), "error generando respuesta: boom") != 2 {
		t.Fatalf("expected two error lines, got:\n%s", out.String())
	}
}

func TestNewCLILogger(t *testing.T) {
	quiet, err := newCLILogger(false)
	if err != nil {
		t.Fatalf("newCLILogger(false): %v", err)
	}
	if quiet == nil || quiet.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected a no-op logger without debug")
	}

	dev, err := newCLILogger(true)
	if err != nil {
		t.Fatalf("newCLILogger(true): %v", err)
	}
	if dev == nil || !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected a debug logger with debug enabled")
	}
}
