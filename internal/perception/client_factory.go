package perception

import (
	"context"
	"fmt"

	"synthfeed/internal/config"
	"synthfeed/internal/logging"
)

// NewGenerator builds the generator named by cfg.LLM.Provider.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.LLM.Provider {
	case "gemini", "":
		gc := DefaultGeminiConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			gc.Model = cfg.LLM.Model
		}
		gc.BaseURL = cfg.LLM.BaseURL
		gc.Timeout = cfg.GetLLMTimeout()
		if cfg.LLM.Temperature > 0 {
			gc.Temperature = cfg.LLM.Temperature
		}
		if cfg.LLM.MaxOutputTokens > 0 {
			gc.MaxOutputTokens = cfg.LLM.MaxOutputTokens
		}

		client, err := NewGeminiClient(ctx, gc)
		if err != nil {
			return nil, err
		}
		logging.Boot("Generator: %s (timeout %v)", client.Name(), gc.Timeout)
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
