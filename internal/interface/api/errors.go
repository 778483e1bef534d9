package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jinford/doc-rag/internal/core/document"
)

// timestampLayout はエラーレスポンスの時刻書式（ミリ秒精度のUTC）
const timestampLayout = "2006-01-02T15:04:05.000Z"

// unexpectedErrorMessage は内部エラーの詳細を隠すためのメッセージ
const unexpectedErrorMessage = "An unexpected error occurred"

// ErrorResponse はエラー時のレスポンス
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// statusFor はエラー種別を HTTP ステータスに対応づける
func statusFor(kind document.Kind) int {
	switch kind {
	case document.KindInvalidArgument:
		return http.StatusBadRequest
	case document.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case document.KindDocumentNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage はクライアントに返すメッセージを決める
func clientMessage(err error) string {
	switch document.KindOf(err) {
	case document.KindInternal, document.KindBlankDocument:
		return unexpectedErrorMessage
	}

	var docErr *document.Error
	if !errors.As(err, &docErr) || docErr.Message == "" {
		return unexpectedErrorMessage
	}
	return docErr.Message
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := document.KindOf(err)
	status := statusFor(kind)

	s.logger.Error("request failed",
		"requestID", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"kind", string(kind),
		"error", err,
	)

	writeJSON(w, status, ErrorResponse{
		Status:    status,
		Message:   clientMessage(err),
		Timestamp: s.now().UTC().Format(timestampLayout),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
