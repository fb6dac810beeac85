package llm

import (
	"context"
	"sync"

	"convo-proxy/internal/domain"
)

// MockProvider permite tests sin llamar a un LLM real.
type MockProvider struct {
	Response string
	Err      error

	mu    sync.Mutex
	Calls []MockCall
}

// MockCall registra los argumentos de una invocacion.
type MockCall struct {
	Message string
	History []domain.Message
}

func (m *MockProvider) GetResponse(_ context.Context, message string, history []domain.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Message: message, History: history})
	return m.Response, m.Err
}

func (m *MockProvider) Kind() Kind { return "mock" }
