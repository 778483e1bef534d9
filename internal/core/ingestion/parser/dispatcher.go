package parser

import (
	"context"
	"errors"
	"io"
	"mime"
	"sort"
	"strings"
	"unicode"

	"github.com/jinford/doc-rag/internal/core/document"
)

// 受け付けるメディアタイプ
const (
	MediaTypePlainText = "text/plain"
	MediaTypePDF       = "application/pdf"
	MediaTypeMSWord    = "application/msword"
	MediaTypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Parser はバイトストリームからテキストを抽出する
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (string, error)
}

// ParserFunc は関数を Parser として扱うアダプタ
type ParserFunc func(ctx context.Context, r io.Reader) (string, error)

// Parse は Parser インターフェースを実装する
func (f ParserFunc) Parse(ctx context.Context, r io.Reader) (string, error) {
	return f(ctx, r)
}

// Dispatcher はメディアタイプからパーサーを選択する
type Dispatcher struct {
	parsers map[string]Parser
}

type DispatcherOption func(*Dispatcher)

// WithParser はメディアタイプに対するパーサーを登録（上書き）する
func WithParser(mediaType string, p Parser) DispatcherOption {
	return func(d *Dispatcher) {
		d.parsers[normalizeMediaType(mediaType)] = p
	}
}

// NewDispatcher はデフォルトのディスパッチテーブルで Dispatcher を作成する
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		parsers: map[string]Parser{
			MediaTypePlainText: NewPlainTextParser(),
			MediaTypePDF:       NewPDFParser(),
			MediaTypeMSWord:    NewMSWordParser(),
			MediaTypeDOCX:      NewDOCXParser(),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SupportedMediaTypes は登録済みのメディアタイプを昇順で返す
func (d *Dispatcher) SupportedMediaTypes() []string {
	types := make([]string, 0, len(d.parsers))
	for t := range d.parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Select はメディアタイプに対応するパーサーを返す
func (d *Dispatcher) Select(mediaType string) (Parser, error) {
	p, ok := d.parsers[normalizeMediaType(mediaType)]
	if !ok {
		return nil, document.UnsupportedMediaType(mediaType)
	}
	return p, nil
}

// Parse はファイルのメディアタイプに応じたパーサーでテキストを抽出する
// 非空白文字を含まない場合は BlankDocument
func (d *Dispatcher) Parse(ctx context.Context, file document.File) (string, error) {
	p, err := d.Select(file.MediaType)
	if err != nil {
		return "", err
	}
	if file.Content == nil {
		return "", document.FileProcessing(errors.New("file content is missing"))
	}

	text, err := p.Parse(ctx, file.Content)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", document.FileProcessing(err)
	}

	if IsBlank(text) {
		return "", document.BlankDocument(file.Name)
	}
	return text, nil
}

// IsBlank は非空白文字を含まない場合 true を返す
func IsBlank(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// normalizeMediaType はパラメータ（charset等）を除去し小文字化する
func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		return parsed
	}
	if idx := strings.Index(mediaType, ";"); idx != -1 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
