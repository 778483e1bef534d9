package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion"
)

const (
	// DefaultUploadMaxBytes はアップロードの上限サイズ（20MiB）
	DefaultUploadMaxBytes = 20 << 20

	// DefaultShutdownTimeout はグレースフルシャットダウンの待機時間
	DefaultShutdownTimeout = 10 * time.Second

	// multipartMemory はマルチパートをメモリに保持する上限（超過分は一時ファイル）
	multipartMemory = 8 << 20
)

// Ingester はファイルを取り込み、ドキュメントIDを払い出す
type Ingester interface {
	Ingest(ctx context.Context, file document.File) (*ingestion.IngestResult, error)
}

// Asker はドキュメントに対する質問に回答する
type Asker interface {
	Ask(ctx context.Context, params ask.AskParams) (*ask.AskResult, error)
}

// DocumentFinder は登録済みドキュメントを参照する
type DocumentFinder interface {
	Find(id int64) mo.Option[*document.Document]
}

// Server は HTTP API を提供する
type Server struct {
	ingester       Ingester
	asker          Asker
	documents      DocumentFinder
	uploadMaxBytes int64
	now            func() time.Time
	logger         *slog.Logger
	handler        http.Handler
}

// ServerOption は Server のオプション設定
type ServerOption func(*Server)

// WithServerLogger は Server にロガーを設定する
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithUploadMaxBytes はアップロードの上限サイズを上書きする
func WithUploadMaxBytes(n int64) ServerOption {
	return func(s *Server) {
		s.uploadMaxBytes = n
	}
}

// WithClock はエラーレスポンスの時刻取得関数を差し替える
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer は新しい Server を作成する
func NewServer(ingester Ingester, asker Asker, documents DocumentFinder, opts ...ServerOption) *Server {
	s := &Server{
		ingester:       ingester,
		asker:          asker,
		documents:      documents,
		uploadMaxBytes: DefaultUploadMaxBytes,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.uploadMaxBytes <= 0 {
		s.uploadMaxBytes = DefaultUploadMaxBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /documents/{id}", s.handleDocument)

	s.handler = requestIDMiddleware(s.loggingMiddleware(mux))
	return s
}

// Handler はミドルウェア適用済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe は addr で待ち受け、ctx がキャンセルされたらグレースフルに停止する
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
