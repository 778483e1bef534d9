package ask

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jinford/doc-rag/internal/core/document"
)

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Retriever は質問に関連するセグメントを取得する
type Retriever interface {
	Retrieve(ctx context.Context, question string, index document.VectorIndex) ([]document.ScoredSegment, error)
}

// AskService は質問応答のビジネスロジックを提供する
type AskService struct {
	registry  *document.Registry
	retriever Retriever
	llm       LLMClient
	logger    *slog.Logger
}

type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// NewAskService は新しいAskServiceを作成する
func NewAskService(
	registry *document.Registry,
	retriever Retriever,
	llm LLMClient,
	opts ...AskServiceOption,
) *AskService {
	svc := &AskService{
		registry:  registry,
		retriever: retriever,
		llm:       llm,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Ask はドキュメントの内容に基づいて質問に回答する
func (s *AskService) Ask(ctx context.Context, params AskParams) (*AskResult, error) {
	// 1. バリデーション
	if params.DocumentID <= 0 {
		return nil, document.InvalidArgument("Document ID must be a positive non-null value.")
	}
	if strings.TrimSpace(params.Question) == "" {
		return nil, document.InvalidArgument("Question must not be null or blank.")
	}

	s.logger.Info("ask started",
		"documentID", params.DocumentID,
		"question", params.Question,
	)

	// 2. ドキュメント取得
	doc, ok := s.registry.Find(params.DocumentID).Get()
	if !ok {
		return nil, document.DocumentNotFound(params.DocumentID)
	}

	// 3. 関連セグメントの検索
	segments, err := s.retriever.Retrieve(ctx, params.Question, doc.Index)
	if err != nil {
		return nil, document.UpstreamFailure("Failed to retrieve relevant content", err)
	}

	s.logger.Info("retrieval completed",
		"documentID", doc.ID,
		"segments", len(segments),
	)

	// 4. プロンプト構築
	prompt := BuildAskPrompt(params.Question, segments)

	// 5. LLMで回答生成
	answer, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, document.UpstreamFailure("Failed to generate answer", err)
	}

	sources := make([]SourceReference, 0, len(segments))
	for _, seg := range segments {
		sources = append(sources, SourceReference{
			Ordinal: seg.Segment.Ordinal,
			Score:   seg.Score,
		})
	}

	s.logger.Info("ask completed",
		"documentID", doc.ID,
		"answerLength", len(answer),
		"sources", len(sources),
	)

	return &AskResult{
		Answer:  answer,
		Sources: sources,
	}, nil
}
