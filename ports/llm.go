package ports

import "context"

// UsageData represents token usage reported by the LLM provider
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// LLMResponse is generated text plus usage data when the provider sends it
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// TextGenerator sends a single-turn prompt and returns the generated text.
// Calls are independent: no conversation state is carried between them.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*LLMResponse, error)
}
