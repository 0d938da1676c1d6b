package llm

import (
	"context"
	"fmt"
	"sync"

	"sheetprompt/ports"
)

// NewTextGenerator creates the generator for a run. In dry-run mode prompts
// are echoed back and no credentials are needed.
func NewTextGenerator(ctx context.Context, creds Credentials, cfg Config, dryRun bool) (ports.TextGenerator, error) {
	if dryRun {
		return &EchoClient{}, nil
	}
	client, err := NewGeminiClient(ctx, creds, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// EchoClient returns each prompt unchanged. It backs --dry-run.
type EchoClient struct{}

func (e *EchoClient) Generate(ctx context.Context, prompt string) (*ports.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ports.LLMResponse{Content: prompt}, nil
}

// MockLLMClient is a mock LLM client for testing. Responses and Errors are
// consumed in call order; once exhausted, Response and Error apply.
type MockLLMClient struct {
	Response  string  // Set this for testing
	Error     error   // Set this to simulate errors
	Responses []string
	Errors    []error

	mu      sync.Mutex
	calls   int
	Prompts []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (*ports.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	m.Prompts = append(m.Prompts, prompt)

	if i < len(m.Errors) && m.Errors[i] != nil {
		return nil, m.Errors[i]
	}
	if i < len(m.Responses) {
		return &ports.LLMResponse{Content: m.Responses[i]}, nil
	}
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Response != "" {
		return &ports.LLMResponse{Content: m.Response}, nil
	}
	// Default mock response
	return &ports.LLMResponse{Content: "mock response for: " + prompt}, nil
}

// Calls returns how many times Generate was called
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
