package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion/chunk"
)

const (
	// DefaultEmbeddingBatchSize はEmbedding APIのデフォルトバッチサイズ
	DefaultEmbeddingBatchSize = 100
	// DefaultEmbeddingWorkerCount はEmbeddingバッチの同時実行数（I/O バウンド）
	DefaultEmbeddingWorkerCount = 4
)

// Embedder はテキストをベクトルに変換する
// BatchEmbed は入力と同じ順序・同じ件数のベクトルを返すこと
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Parser はファイルからテキストを抽出する
type Parser interface {
	Parse(ctx context.Context, file document.File) (string, error)
}

// Splitter はテキストをセグメントに分割する
type Splitter interface {
	Split(text string) []document.Segment
}

// IndexFactory はドキュメントごとの新しいインデックスを作成する
type IndexFactory func() document.VectorIndex

// IngestResult は取り込み結果を表す
type IngestResult struct {
	DocumentID int64
	Segments   int
	Duration   time.Duration
}

// IngestService はドキュメント取り込みのユースケースを提供する
type IngestService struct {
	parser      Parser
	splitter    Splitter
	embedder    Embedder
	registry    *document.Registry
	newIndex    IndexFactory
	batchSize   int
	workerCount int
	logger      *slog.Logger
}

type ingestServiceOptions struct {
	batchSize   int
	workerCount int
	logger      *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger は IngestService にロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithEmbeddingBatchSize はEmbeddingのバッチサイズを上書きする
func WithEmbeddingBatchSize(size int) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.batchSize = size
	}
}

// WithEmbeddingWorkerCount はEmbeddingバッチの同時実行数を上書きする
func WithEmbeddingWorkerCount(count int) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.workerCount = count
	}
}

// NewIngestService は新しいIngestServiceを作成する
func NewIngestService(
	parser Parser,
	splitter Splitter,
	embedder Embedder,
	registry *document.Registry,
	newIndex IndexFactory,
	opts ...IngestServiceOption,
) *IngestService {
	options := ingestServiceOptions{
		batchSize:   DefaultEmbeddingBatchSize,
		workerCount: DefaultEmbeddingWorkerCount,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.batchSize <= 0 {
		options.batchSize = DefaultEmbeddingBatchSize
	}
	if options.workerCount <= 0 {
		options.workerCount = DefaultEmbeddingWorkerCount
	}

	return &IngestService{
		parser:      parser,
		splitter:    splitter,
		embedder:    embedder,
		registry:    registry,
		newIndex:    newIndex,
		batchSize:   options.batchSize,
		workerCount: options.workerCount,
		logger:      options.logger,
	}
}

// Ingest はファイルをパース・分割・Embeddingし、新しいインデックスとして登録する
// いずれかの段階で失敗した場合は何も登録せず、IDも消費しない
func (s *IngestService) Ingest(ctx context.Context, file document.File) (*IngestResult, error) {
	startTime := time.Now()

	s.logger.Info("ingest started",
		"fileName", file.Name,
		"mediaType", file.MediaType,
		"size", file.Size,
	)

	// 1. パース
	text, err := s.parser.Parse(ctx, file)
	if err != nil {
		return nil, err
	}

	// 2. 分割
	segments := s.splitter.Split(text)
	if len(segments) == 0 {
		return nil, document.BlankDocument(file.Name)
	}

	// 3. Embedding
	vectors, err := s.embedSegments(ctx, segments)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, document.NewError(document.KindFileProcessing, "Failed to embed document content", err)
	}

	// 4. 新しいインデックスに追加
	index := s.newIndex()
	if err := index.AddAll(vectors, segments); err != nil {
		return nil, document.NewError(document.KindFileProcessing, "Failed to index document content", err)
	}

	// 5. 登録（ここで初めてIDを採番する）
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.registry.Register(document.Draft{
		FileName:  file.Name,
		MediaType: file.MediaType,
		Chars:     len([]rune(text)),
		Index:     index,
	})
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		DocumentID: doc.ID,
		Segments:   doc.Segments,
		Duration:   time.Since(startTime),
	}

	s.logger.Info("ingest completed",
		"documentID", result.DocumentID,
		"segments", result.Segments,
		"duration", result.Duration,
	)

	return result, nil
}

// embedSegments はセグメントをバッチに分けて並行にEmbeddingし、入力順に並べて返す
func (s *IngestService) embedSegments(ctx context.Context, segments []document.Segment) ([][]float32, error) {
	vectors := make([][]float32, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for start := 0; start < len(segments); start += s.batchSize {
		end := min(start+s.batchSize, len(segments))

		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, seg := range segments[start:end] {
				texts = append(texts, seg.Text)
			}

			batch, err := s.embedder.BatchEmbed(gctx, texts)
			if err != nil {
				s.logger.Error("batch embedding failed",
					"batchSize", len(texts),
					"error", err,
				)
				return fmt.Errorf("embedding generation failed: %w", err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(batch))
			}

			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// インターフェース実装の確認
var _ Splitter = (*chunk.Segmenter)(nil)
