package factory

import (
	"fmt"
	"strings"

	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/llm/gemini"
	"ai-mail-workspace-be/pkg/llm/groq"
)

// Settings carries the provider credentials and the generation parameters
// applied to every client built from it.
type Settings struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GroqAPIKey    string
	GroqModel     string
	GroqBaseURL   string
	Temperature   float64
	MaxTokens     int
	MaxToolRounds int
}

// ClientFactory builds a fresh client per call; nothing is cached.
type ClientFactory struct {
	settings Settings
}

func NewClientFactory(settings Settings) *ClientFactory {
	return &ClientFactory{settings: settings}
}

func (f *ClientFactory) BuildClient(provider string) (llm.ChatClient, error) {
	s := f.settings
	opts := []llm.Option{
		llm.WithTemperature(s.Temperature),
		llm.WithMaxTokens(s.MaxTokens),
		llm.WithMaxRounds(s.MaxToolRounds),
	}

	switch provider {
	case llm.ProviderGemini:
		if strings.TrimSpace(s.GeminiAPIKey) == "" {
			return nil, &llm.ConfigurationError{Provider: llm.ProviderGemini, Key: "GEMINI_API_KEY"}
		}
		return gemini.NewClient(s.GeminiAPIKey, s.GeminiBaseURL, append(opts, llm.WithModel(s.GeminiModel))...), nil
	case llm.ProviderGroq:
		if strings.TrimSpace(s.GroqAPIKey) == "" {
			return nil, &llm.ConfigurationError{Provider: llm.ProviderGroq, Key: "GROQ_API_KEY"}
		}
		return groq.NewClient(s.GroqAPIKey, s.GroqBaseURL, append(opts, llm.WithModel(s.GroqModel))...), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
