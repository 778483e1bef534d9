package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/doc-rag/internal/core/document"
)

const (
	// DefaultMaxResults は取得件数上限のデフォルト値
	DefaultMaxResults = 3

	// DefaultMinScore は類似度閾値のデフォルト値（直交以上）
	DefaultMinScore = 0.5
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Truncator はテキストを先頭から maxTokens 以内に切り詰める
type Truncator interface {
	Truncate(text string, maxTokens int) string
}

// RetrieverOptions は検索パラメータを表す
type RetrieverOptions struct {
	MaxResults int     // 取得件数上限（正の整数）
	MinScore   float64 // 類似度閾値 [0, 1]
}

// DefaultRetrieverOptions はデフォルトの検索パラメータを返す
func DefaultRetrieverOptions() RetrieverOptions {
	return RetrieverOptions{
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
	}
}

// Validate は検索パラメータの妥当性を検証する
func (o RetrieverOptions) Validate() error {
	if o.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive: %d", o.MaxResults)
	}
	if o.MinScore < 0 || o.MinScore > 1 {
		return fmt.Errorf("min score must be within [0, 1]: %v", o.MinScore)
	}
	return nil
}

// Retriever は質問に関連するセグメントをインデックスから取得する
type Retriever struct {
	embedder       Embedder
	options        RetrieverOptions
	truncator      Truncator
	maxQueryTokens int
	logger         *slog.Logger
}

type RetrieverOption func(*Retriever)

// WithRetrieverLogger は Retriever にロガーを設定する
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// WithQueryTruncation は Embedding 前に質問を maxTokens 以内に切り詰める
// Embedding モデルの入力上限を超える質問で API エラーにならないようにする
func WithQueryTruncation(truncator Truncator, maxTokens int) RetrieverOption {
	return func(r *Retriever) {
		r.truncator = truncator
		r.maxQueryTokens = maxTokens
	}
}

// NewRetriever は新しい Retriever を作成する
func NewRetriever(embedder Embedder, options RetrieverOptions, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	r := &Retriever{
		embedder: embedder,
		options:  options,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r, nil
}

// Options は設定済みの検索パラメータを返す
func (r *Retriever) Options() RetrieverOptions {
	return r.options
}

// Retrieve は質問をEmbeddingに変換し、インデックスからスコア降順でセグメントを返す
// 閾値を満たすセグメントがない場合は空スライス
func (r *Retriever) Retrieve(ctx context.Context, question string, index document.VectorIndex) ([]document.ScoredSegment, error) {
	query := question
	if r.truncator != nil && r.maxQueryTokens > 0 {
		query = r.truncator.Truncate(question, r.maxQueryTokens)
		if len(query) < len(question) {
			r.logger.Warn("question truncated for embedding",
				"maxTokens", r.maxQueryTokens,
				"originalBytes", len(question),
				"truncatedBytes", len(query),
			)
		}
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := index.Search(queryVector, r.options.MaxResults, r.options.MinScore)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	r.logger.Debug("retrieved segments",
		"results", len(results),
		"maxResults", r.options.MaxResults,
		"minScore", r.options.MinScore,
	)

	return results, nil
}
