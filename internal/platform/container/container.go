package container

import (
	"fmt"
	"log/slog"

	coreask "github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/document"
	coreingestion "github.com/jinford/doc-rag/internal/core/ingestion"
	"github.com/jinford/doc-rag/internal/core/ingestion/chunk"
	"github.com/jinford/doc-rag/internal/core/ingestion/parser"
	coresearch "github.com/jinford/doc-rag/internal/core/search"
	"github.com/jinford/doc-rag/internal/infra/openai"
	"github.com/jinford/doc-rag/internal/infra/tokenizer"
	"github.com/jinford/doc-rag/pkg/config"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
// Registry はプロセス内で1つだけ生成し、全サービスで共有する。
type ServiceContainer struct {
	Registry      *document.Registry
	Dispatcher    *parser.Dispatcher
	IngestService *coreingestion.IngestService
	AskService    *coreask.AskService

	logger *slog.Logger
}

type containerOptions struct {
	logger       *slog.Logger
	embedder     coreingestion.Embedder
	llmClient    coreask.LLMClient
	tokenCounter chunk.TokenCounter
	registry     *document.Registry
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder coreingestion.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client coreask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter chunk.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithContainerRegistry は Registry を差し替える
func WithContainerRegistry(registry *document.Registry) ContainerOption {
	return func(opts *containerOptions) {
		opts.registry = registry
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Chat と Embedding で同じ API キーのレート制限を共有する
	limiter := openai.NewRateLimiter(cfg.OpenAI.RequestsPerSecond, cfg.OpenAI.RequestBurst)

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
			openai.WithEmbeddingRateLimiter(limiter),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		model, err := openai.ResolveChatModel(cfg.OpenAI.ModelName)
		if err != nil {
			return nil, fmt.Errorf("OpenAI モデル名の解決に失敗しました: %w", err)
		}
		openaiClient, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithModel(model),
			openai.WithTemperature(cfg.OpenAI.Temperature),
			openai.WithMaxTokens(cfg.OpenAI.MaxTokens),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithRateLimiter(limiter),
			openai.WithClientLogger(options.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = openaiClient
	}

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := tokenizer.NewTokenCounter()
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
		tokenCounter = counter
	}

	registry := options.registry
	if registry == nil {
		registry = document.NewRegistry()
	}

	// Retriever
	retrieverOpts := []coresearch.RetrieverOption{coresearch.WithRetrieverLogger(options.logger)}
	if truncator, ok := tokenCounter.(coresearch.Truncator); ok {
		retrieverOpts = append(retrieverOpts, coresearch.WithQueryTruncation(truncator, openai.MaxEmbeddingInputTokens))
	}
	retriever, err := coresearch.NewRetriever(
		embedder,
		coresearch.RetrieverOptions{
			MaxResults: cfg.Retriever.MaxResults,
			MinScore:   cfg.Retriever.MinScore,
		},
		retrieverOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("Retriever 初期化に失敗しました: %w", err)
	}

	dispatcher := parser.NewDispatcher()
	segmenter := chunk.NewSegmenter(tokenCounter)

	// IngestService
	ingestService := coreingestion.NewIngestService(
		dispatcher,
		segmenter,
		embedder,
		registry,
		func() document.VectorIndex { return coresearch.NewMemoryIndex() },
		coreingestion.WithIngestLogger(options.logger),
	)

	// AskService
	askService := coreask.NewAskService(registry, retriever, llmClient, coreask.WithAskLogger(options.logger))

	options.logger.Info("service container initialized",
		"mediaTypes", dispatcher.SupportedMediaTypes(),
		"segmentMaxTokens", segmenter.MaxTokens(),
		"embeddingDimension", cfg.OpenAI.EmbeddingDimension,
		"maxResults", retriever.Options().MaxResults,
		"minScore", retriever.Options().MinScore,
	)

	return &ServiceContainer{
		Registry:      registry,
		Dispatcher:    dispatcher,
		IngestService: ingestService,
		AskService:    askService,
		logger:        options.logger,
	}, nil
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
