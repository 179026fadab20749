package perception

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"synthfeed/internal/logging"

	"google.golang.org/genai"
)

const defaultSystemPrompt = "You are a helpful assistant."

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL         string
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int32
	// MaxRetries bounds retries on rate limits and transient server errors.
	MaxRetries int
	// HTTPClient is passed to the SDK when set.
	HTTPClient *http.Client
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		Model:           "gemini-2.5-flash-lite",
		Timeout:         120 * time.Second,
		Temperature:     1.0,
		MaxOutputTokens: 8192,
		MaxRetries:      3,
	}
}

// GeminiClient implements Generator on the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig

	mu          sync.Mutex
	lastRequest time.Time

	// backoff is swapped out in tests.
	backoff func(attempt int) time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client: client,
		cfg:    cfg,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}, nil
}

// Name returns the provider and model.
func (c *GeminiClient) Name() string {
	return "gemini:" + c.cfg.Model
}

// Model returns the configured model.
func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

// Generate sends the request and returns the concatenated response text.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] Generate: model=%s system_len=%d prompt_len=%d history=%d image=%v",
		c.cfg.Model, len(req.System), len(req.Prompt), len(req.History), req.Image != nil)

	system := req.System
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens:   c.cfg.MaxOutputTokens,
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	contents := buildContents(req)

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	var lastErr error
	for i := 0; i <= c.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff(i)):
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
		if err != nil {
			if retryable(err) {
				lastErr = err
				logging.Get(logging.CategoryAPI).Warn("[Gemini] Generate: attempt %d failed, retrying: %v", i+1, err)
				continue
			}
			logging.Get(logging.CategoryAPI).Error("[Gemini] Generate: request failed after %v: %v", time.Since(startTime), err)
			return "", fmt.Errorf("generate content: %w", err)
		}

		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("no completion returned")
		}

		logging.API("[Gemini] Generate: completed in %v response_len=%d", time.Since(startTime), len(text))
		return text, nil
	}

	logging.Get(logging.CategoryAPI).Error("[Gemini] Generate: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

// retryable reports whether err is a rate limit or a transient server error.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= 500
	}
	return false
}
