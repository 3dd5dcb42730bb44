package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "ollama":
		return NewOllamaProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "":
		// No provider configured - return nil (inference disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: ollama, openai)", config.Provider)
	}
}
