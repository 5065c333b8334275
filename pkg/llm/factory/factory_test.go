package factory

import (
	"testing"

	"ai-mail-workspace-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClient(t *testing.T) {
	tests := []struct {
		name         string
		settings     Settings
		provider     string
		wantProvider string
		wantKey      string
	}{
		{
			name:         "gemini with key",
			settings:     Settings{GeminiAPIKey: "g-key", GeminiModel: "gemini-2.5-flash"},
			provider:     llm.ProviderGemini,
			wantProvider: llm.ProviderGemini,
		},
		{
			name:         "groq with key",
			settings:     Settings{GroqAPIKey: "q-key", GroqModel: "llama-3.3-70b-versatile"},
			provider:     llm.ProviderGroq,
			wantProvider: llm.ProviderGroq,
		},
		{
			name:     "gemini missing key",
			settings: Settings{GroqAPIKey: "q-key"},
			provider: llm.ProviderGemini,
			wantKey:  "GEMINI_API_KEY",
		},
		{
			name:     "groq blank key",
			settings: Settings{GroqAPIKey: "   "},
			provider: llm.ProviderGroq,
			wantKey:  "GROQ_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClientFactory(tt.settings).BuildClient(tt.provider)
			if tt.wantKey != "" {
				var cfgErr *llm.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.wantKey, cfgErr.Key)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, client.Provider())
		})
	}
}

func TestBuildClientReturnsFreshInstances(t *testing.T) {
	f := NewClientFactory(Settings{GeminiAPIKey: "k"})
	a, err := f.BuildClient(llm.ProviderGemini)
	require.NoError(t, err)
	b, err := f.BuildClient(llm.ProviderGemini)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestBuildClientUnknownProvider(t *testing.T) {
	_, err := NewClientFactory(Settings{}).BuildClient("openai")
	assert.EqualError(t, err, "unsupported LLM provider: openai")
}
