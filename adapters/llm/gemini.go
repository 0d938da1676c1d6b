package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sheetprompt/internal"
	"sheetprompt/internal/errors"
	"sheetprompt/ports"

	"google.golang.org/genai"
)

const (
	providerGemini = "gemini"
	defaultModel   = "gemini-2.0-flash"
)

// Credentials holds the API key for one run. It is built once from
// configuration and passed to the client explicitly.
type Credentials struct {
	APIKey string
}

// Config holds Gemini request settings
type Config struct {
	Model           string        // e.g. "gemini-2.0-flash"
	BaseURL         string        // Optional endpoint override
	Temperature     *float64      // nil leaves the model default
	MaxOutputTokens int           // 0 leaves the model default
	Timeout         time.Duration // 0 means no client-side timeout
}

// GeminiClient implements ports.TextGenerator on the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	logger *internal.Logger
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient creates a client bound to creds. An empty API key is an
// authentication error.
func NewGeminiClient(ctx context.Context, creds Credentials, cfg Config, logger *internal.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if strings.TrimSpace(creds.APIKey) == "" {
		return nil, errors.Authentication("missing Gemini API key", nil)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     creds.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err, "failed to create GenAI client")
	}

	genConfig := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		genConfig.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	logger.Debug("[GeminiClient] Initialized with model=%s", model)
	return &GeminiClient{
		client: client,
		model:  model,
		config: genConfig,
		logger: logger,
	}, nil
}

// Model returns the model name requests are sent to
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*ports.LLMResponse, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return nil, classifyError(err)
	}

	text, err := firstCandidateText(result)
	if err != nil {
		return nil, err
	}

	resp := &ports.LLMResponse{Content: text}
	if u := result.UsageMetadata; u != nil {
		resp.Usage = &ports.UsageData{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
			Model:            c.model,
			Provider:         providerGemini,
		}
		c.logger.Debug("[GeminiClient] usage prompt=%d completion=%d total=%d",
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	}
	return resp, nil
}

// firstCandidateText joins the non-thought text parts of the first
// candidate. Blocked or empty responses are API errors.
func firstCandidateText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		reason := ""
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			reason = fmt.Sprintf(" (block reason: %s)", result.PromptFeedback.BlockReason)
		}
		return "", errors.APIError("Gemini returned no candidates"+reason, nil)
	}

	cand := result.Candidates[0]
	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		reason := ""
		if cand.FinishReason != "" {
			reason = fmt.Sprintf(" (finish reason: %s)", cand.FinishReason)
		}
		return "", errors.APIError("Gemini returned empty text"+reason, nil)
	}
	return text, nil
}

// classifyError maps SDK and transport errors onto the error taxonomy
func classifyError(err error) error {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		msg := fmt.Sprintf("Gemini API error %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message)
		if isAuthFailure(apiErr) {
			return errors.Authentication(msg, err)
		}
		return errors.APIError(msg, err)
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NetworkError("Gemini request did not complete", err)
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return errors.NetworkError("Gemini request failed", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NetworkError("Gemini request failed", err)
	}

	return errors.APIError("Gemini request failed", err)
}

func isAuthFailure(apiErr genai.APIError) bool {
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(apiErr.Message), "api key")
	}
	return false
}
