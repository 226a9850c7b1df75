package factory

import (
	"fmt"

	"accident-advisor-be/pkg/llm"
	"accident-advisor-be/pkg/llm/ollama"
	"accident-advisor-be/pkg/llm/openai"
)

type Config struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
}

// NewLLMProvider selects the chat backend from config. "openai" is the
// production default, "ollama" is used for local development.
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "openai", "":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.Model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(url, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
