package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVER_PORT", "UPLOAD_MAX_BYTES", "LOG_LEVEL", "LOG_FORMAT",
	"RETRIEVER_MAX_RESULTS", "RETRIEVER_MIN_SCORE",
	"OPENAI_API_KEY", "OPENAI_MODEL_NAME", "OPENAI_TEMPERATURE", "OPENAI_MAX_TOKENS",
	"OPENAI_EMBEDDING_MODEL", "OPENAI_EMBEDDING_DIMENSION", "OPENAI_BASE_URL",
	"OPENAI_REQUESTS_PER_SECOND", "OPENAI_REQUEST_BURST",
}

// clearEnv はテスト中の環境変数を空にする（t.Setenv により終了時に復元される）
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(DefaultUploadMaxBytes), cfg.Server.UploadMaxBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Retriever.MaxResults)
	assert.Equal(t, 0.5, cfg.Retriever.MinScore)
	assert.Equal(t, "", cfg.OpenAI.APIKey)
	assert.Equal(t, "GPT_4_O_MINI", cfg.OpenAI.ModelName)
	assert.Equal(t, 0.7, cfg.OpenAI.Temperature)
	assert.Equal(t, 1500, cfg.OpenAI.MaxTokens)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.Equal(t, "", cfg.OpenAI.BaseURL)
	assert.Equal(t, 0.0, cfg.OpenAI.RequestsPerSecond)
	assert.Equal(t, 5, cfg.OpenAI.RequestBurst)

	assert.ErrorIs(t, cfg.Validate(), ErrAPIKeyNotSet)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, `
SERVER_PORT=9090
OPENAI_API_KEY=file-key
OPENAI_MODEL_NAME=GPT_4_O
RETRIEVER_MAX_RESULTS=5
RETRIEVER_MIN_SCORE=0.75
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "GPT_4_O", cfg.OpenAI.ModelName)
	assert.Equal(t, 5, cfg.Retriever.MaxResults)
	assert.Equal(t, 0.75, cfg.Retriever.MinScore)
	assert.NoError(t, cfg.Validate())

	// .env の値はプロセス環境に書き込まない
	assert.Equal(t, "", os.Getenv("OPENAI_API_KEY"))
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "OPENAI_API_KEY=file-key\nSERVER_PORT=9090\n")
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("RETRIEVER_MIN_SCORE", "high")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Retriever.MinScore)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080, UploadMaxBytes: DefaultUploadMaxBytes},
			Retriever: RetrieverConfig{MaxResults: 3, MinScore: 0.5},
			OpenAI:    OpenAIConfig{APIKey: "key", EmbeddingDimension: 1536},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "missing api key", mutate: func(c *Config) { c.OpenAI.APIKey = " " }},
		{name: "zero max results", mutate: func(c *Config) { c.Retriever.MaxResults = 0 }},
		{name: "negative min score", mutate: func(c *Config) { c.Retriever.MinScore = -0.1 }},
		{name: "min score above one", mutate: func(c *Config) { c.Retriever.MinScore = 1.1 }},
		{name: "min score of one", mutate: func(c *Config) { c.Retriever.MinScore = 1 }, ok: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "zero upload limit", mutate: func(c *Config) { c.Server.UploadMaxBytes = 0 }},
		{name: "zero dimension", mutate: func(c *Config) { c.OpenAI.EmbeddingDimension = 0 }},
		{name: "negative request rate", mutate: func(c *Config) { c.OpenAI.RequestsPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
