package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate when
// GEMINI_API_KEY is present.
func validConfig() *Config {
	return &Config{
		Provider:           ProviderGemini,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.7,
		MaxTokens:          2048,
		MaxSteps:           DefaultMaxSteps,
		HistoryWindow:      DefaultHistoryWindow,
		Router:             "classifier",
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "amblue",
		PostgresPassword:   "secret",
		PostgresDBName:     "amblue",
		PostgresSSLMode:    "disable",
		CheckpointPoolSize: DefaultCheckpointPoolSize,
		EmbedderModel:      DefaultGeminiEmbedderModel,
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "claude" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max steps",
			mutate:  func(c *Config) { c.MaxSteps = 0 },
			wantErr: ErrInvalidMaxSteps,
		},
		{
			name:    "negative history window",
			mutate:  func(c *Config) { c.HistoryWindow = -1 },
			wantErr: ErrInvalidHistoryWindow,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "bogus ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
		{
			name:    "pool size zero",
			mutate:  func(c *Config) { c.CheckpointPoolSize = 0 },
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "ollama without host",
			mutate:  func(c *Config) { c.Provider = ProviderOllama; c.OllamaHost = "" },
			wantErr: ErrInvalidOllamaHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestMarshalJSON_MasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "super_secret_password")
	assert.Contains(t, string(data), maskedValue)
}

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, maskSecret(""))
	assert.Equal(t, maskedValue, maskSecret("short"))
	assert.Equal(t, maskedValue, maskSecret("12345678"))

	masked := maskSecret("abcdefghijkl")
	assert.Equal(t, "ab<"+maskedValue+">kl", masked)
	assert.NotContains(t, masked, "cdefghij")
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{ProviderGemini, "ollama/qwen3", "ollama/qwen3"},
	}

	for _, tt := range tests {
		cfg := &Config{Provider: tt.provider, ModelName: tt.model}
		assert.Equal(t, tt.want, cfg.FullModelName())
	}
}
