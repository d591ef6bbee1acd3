package factory

import (
	"context"
	"fmt"
	"time"

	"companion-be/pkg/llm"
	"companion-be/pkg/llm/gemini"
	"companion-be/pkg/llm/ollama"
	"companion-be/pkg/llm/openai"
)

type Config struct {
	Provider        string // "openai", "huggingface", "ollama", "gemini"
	Model           string
	APIKey          string
	BaseURL         string
	ModerationModel string
	KeepAlive       string // ollama only
	Timeout         time.Duration
}

// NewLLMProvider returns the completion provider and, when the backend has one, its moderation endpoint.
// The returned Moderator is nil for providers without moderation.
func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, llm.Moderator, error) {
	switch cfg.Provider {
	case "openai":
		p := openai.NewOpenAIProvider(openai.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			ModerationModel: cfg.ModerationModel,
			Timeout:         cfg.Timeout,
		})
		return p, p, nil
	case "huggingface":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://router.huggingface.co/v1" // Default Router URL
		}
		p := openai.NewOpenAIProvider(openai.Config{APIKey: cfg.APIKey, BaseURL: baseURL, Model: cfg.Model, Timeout: cfg.Timeout})
		return p, nil, nil
	case "ollama":
		p := ollama.NewOllamaProvider(ollama.Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			KeepAlive: cfg.KeepAlive,
			Timeout:   cfg.Timeout,
		})
		return p, nil, nil
	case "gemini":
		p, err := gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
