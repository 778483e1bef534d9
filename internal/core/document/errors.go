package document

import (
	"errors"
	"fmt"
)

// Kind はエラー分類を表す
type Kind string

const (
	KindInvalidArgument      Kind = "invalid_argument"
	KindUnsupportedMediaType Kind = "unsupported_media_type"
	KindBlankDocument        Kind = "blank_document"
	KindFileProcessing       Kind = "file_processing"
	KindDocumentNotFound     Kind = "document_not_found"
	KindUpstreamFailure      Kind = "upstream_failure"
	KindInternal             Kind = "internal"
)

var (
	// ErrInvalidArgument は呼び出し側の値が前提条件を満たさない場合のエラー
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedMediaType は受け付けないメディアタイプの場合のエラー
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrBlankDocument はパース結果に有効なテキストがない場合のエラー
	ErrBlankDocument = errors.New("blank document")

	// ErrFileProcessing はアップロードの読み込み・パースに失敗した場合のエラー
	ErrFileProcessing = errors.New("file processing failed")

	// ErrDocumentNotFound は指定IDのドキュメントが存在しない場合のエラー
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUpstreamFailure は Embedding / LLM 呼び出しに失敗した場合のエラー
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrInternal は分類できないエラー
	ErrInternal = errors.New("internal error")
)

var kindSentinels = map[Kind]error{
	KindInvalidArgument:      ErrInvalidArgument,
	KindUnsupportedMediaType: ErrUnsupportedMediaType,
	KindBlankDocument:        ErrBlankDocument,
	KindFileProcessing:       ErrFileProcessing,
	KindDocumentNotFound:     ErrDocumentNotFound,
	KindUpstreamFailure:      ErrUpstreamFailure,
	KindInternal:             ErrInternal,
}

// Error はドキュメント処理のエラーを表す
// Message はクライアントに返すメッセージ、Err は原因（ログ用）
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は同じ Kind の番兵エラーとの比較を可能にする
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewError は新しい Error を作成する
func NewError(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// InvalidArgument は KindInvalidArgument の Error を作成する
func InvalidArgument(message string) *Error {
	return NewError(KindInvalidArgument, message, nil)
}

// UnsupportedMediaType は KindUnsupportedMediaType の Error を作成する
func UnsupportedMediaType(mediaType string) *Error {
	if mediaType == "" {
		mediaType = "null"
	}
	return NewError(KindUnsupportedMediaType, "Unsupported file type: "+mediaType, nil)
}

// BlankDocument は KindBlankDocument の Error を作成する
func BlankDocument(name string) *Error {
	return NewError(KindBlankDocument, fmt.Sprintf("Uploaded document %q has no text content", name), nil)
}

// FileProcessing は KindFileProcessing の Error を作成する
func FileProcessing(err error) *Error {
	return NewError(KindFileProcessing, "Failed to read file content", err)
}

// DocumentNotFound は KindDocumentNotFound の Error を作成する
func DocumentNotFound(id int64) *Error {
	return NewError(KindDocumentNotFound, fmt.Sprintf("Document not found with ID: %d", id), nil)
}

// UpstreamFailure は KindUpstreamFailure の Error を作成する
func UpstreamFailure(message string, err error) *Error {
	return NewError(KindUpstreamFailure, message, err)
}

// KindOf はエラーの Kind を返す。分類できない場合は KindInternal
func KindOf(err error) Kind {
	var docErr *Error
	if errors.As(err, &docErr) {
		return docErr.Kind
	}
	return KindInternal
}
