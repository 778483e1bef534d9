package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultUploadMaxBytes はアップロードの上限サイズ（20MiB）
	DefaultUploadMaxBytes = 20 << 20
)

var (
	// ErrAPIKeyNotSet はOpenAI APIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key must be set either as an environment variable 'OPENAI_API_KEY' or in the env file")

	// ErrInvalidConfig は設定値が不正な場合のエラー
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// HTTPサーバ設定
	Server ServerConfig

	// ログ設定
	Log LogConfig

	// 検索設定
	Retriever RetrieverConfig

	// OpenAI設定（Chat + Embeddings）
	OpenAI OpenAIConfig
}

// ServerConfig はHTTPサーバ設定
type ServerConfig struct {
	Port           int
	UploadMaxBytes int64
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string
	Format string
}

// RetrieverConfig は関連セグメント検索の設定
type RetrieverConfig struct {
	MaxResults int
	MinScore   float64
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	ModelName          string // GPT_4_O_MINI 形式の列挙名、またはモデルID
	Temperature        float64
	MaxTokens          int
	EmbeddingModel     string
	EmbeddingDimension int
	BaseURL            string
	RequestsPerSecond  float64 // 0 の場合は制限なし
	RequestBurst       int
}

// Load は環境変数または.envファイルから設定を読み込みます
// 同じキーがある場合は環境変数を優先します
func Load(envFilePath string) (*Config, error) {
	fileValues := map[string]string{}
	if envFilePath != "" {
		values, err := godotenv.Read(envFilePath)
		if err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		} else {
			fileValues = values
		}
	}

	env := source{file: fileValues}

	cfg := &Config{
		Server: ServerConfig{
			Port:           env.getInt("SERVER_PORT", 8080),
			UploadMaxBytes: env.getInt64("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes),
		},
		Log: LogConfig{
			Level:  env.get("LOG_LEVEL", "info"),
			Format: env.get("LOG_FORMAT", "json"),
		},
		Retriever: RetrieverConfig{
			MaxResults: env.getInt("RETRIEVER_MAX_RESULTS", 3),
			MinScore:   env.getFloat("RETRIEVER_MIN_SCORE", 0.5),
		},
		OpenAI: OpenAIConfig{
			APIKey:             env.get("OPENAI_API_KEY", ""),
			ModelName:          env.get("OPENAI_MODEL_NAME", "GPT_4_O_MINI"),
			Temperature:        env.getFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:          env.getInt("OPENAI_MAX_TOKENS", 1500),
			EmbeddingModel:     env.get("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: env.getInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			BaseURL:            env.get("OPENAI_BASE_URL", ""),
			RequestsPerSecond:  env.getFloat("OPENAI_REQUESTS_PER_SECOND", 0),
			RequestBurst:       env.getInt("OPENAI_REQUEST_BURST", 5),
		},
	}

	return cfg, nil
}

// Validate は起動に必要な設定値を検証します
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrAPIKeyNotSet
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: SERVER_PORT must be between 1 and 65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.UploadMaxBytes <= 0 {
		return fmt.Errorf("%w: UPLOAD_MAX_BYTES must be positive, got %d", ErrInvalidConfig, c.Server.UploadMaxBytes)
	}
	if c.Retriever.MaxResults <= 0 {
		return fmt.Errorf("%w: RETRIEVER_MAX_RESULTS must be positive, got %d", ErrInvalidConfig, c.Retriever.MaxResults)
	}
	if c.Retriever.MinScore < 0 || c.Retriever.MinScore > 1 {
		return fmt.Errorf("%w: RETRIEVER_MIN_SCORE must be within [0, 1], got %g", ErrInvalidConfig, c.Retriever.MinScore)
	}
	if c.OpenAI.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: OPENAI_REQUESTS_PER_SECOND must not be negative, got %g", ErrInvalidConfig, c.OpenAI.RequestsPerSecond)
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: OPENAI_EMBEDDING_DIMENSION must be positive, got %d", ErrInvalidConfig, c.OpenAI.EmbeddingDimension)
	}
	return nil
}

// source は環境変数と.envファイルの値を優先順位付きで参照します
type source struct {
	file map[string]string
}

// get は環境変数を取得し、存在しない場合は.envの値、それもなければデフォルト値を返します
func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := s.file[key]; value != "" {
		return value
	}
	return defaultValue
}

// getInt は値を整数として取得します
func (s source) getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(s.get(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getInt64 は値を64bit整数として取得します
func (s source) getInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(s.get(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getFloat は値を浮動小数点数として取得します
func (s source) getFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(s.get(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}
