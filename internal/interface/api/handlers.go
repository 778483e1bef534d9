package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/document"
)

const healthMessage = "Application is running"

// UploadResponse は POST /upload のレスポンス
type UploadResponse struct {
	DocumentID int64  `json:"documentId"`
	Status     string `json:"status"`
}

// ChatRequest は POST /chat のリクエスト
// 未指定と空値を区別するためポインタで受ける
type ChatRequest struct {
	DocumentID *int64  `json:"documentId"`
	Question   *string `json:"question"`
}

// ChatResponse は POST /chat のレスポンス
type ChatResponse struct {
	Answer string `json:"answer"`
}

// DocumentResponse は GET /documents/{id} のレスポンス
type DocumentResponse struct {
	DocumentID int64  `json:"documentId"`
	FileName   string `json:"fileName"`
	MediaType  string `json:"mediaType"`
	Segments   int    `json:"segments"`
	CreatedAt  string `json:"createdAt"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBytes)
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			s.writeError(w, r, document.InvalidArgument("Required part 'file' is not present."))
			return
		}
		// 上限超過を含む読み込み失敗
		s.writeError(w, r, document.FileProcessing(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.writeError(w, r, document.InvalidArgument("Required part 'file' is not present."))
			return
		}
		s.writeError(w, r, document.FileProcessing(err))
		return
	}
	defer file.Close()

	result, err := s.ingester.Ingest(r.Context(), document.File{
		Name:      header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Content:   file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		DocumentID: result.DocumentID,
		Status:     "Success",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, document.NewError(document.KindInvalidArgument, "Malformed JSON request", err))
		return
	}

	if req.DocumentID == nil {
		s.writeError(w, r, document.InvalidArgument("documentId: Document ID cannot be empty"))
		return
	}
	if req.Question == nil || strings.TrimSpace(*req.Question) == "" {
		s.writeError(w, r, document.InvalidArgument("question: Question cannot be empty"))
		return
	}

	result, err := s.asker.Ask(r.Context(), ask.AskParams{
		DocumentID: *req.DocumentID,
		Question:   *req.Question,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: result.Answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(healthMessage))
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, document.InvalidArgument("Document ID must be a positive integer."))
		return
	}

	doc, ok := s.documents.Find(id).Get()
	if !ok {
		s.writeError(w, r, document.DocumentNotFound(id))
		return
	}

	writeJSON(w, http.StatusOK, DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		MediaType:  doc.MediaType,
		Segments:   doc.Segments,
		CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
	})
}
