package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// ErrBinaryContent はテキストとして申告されたがバイナリだった場合のエラー
var ErrBinaryContent = errors.New("content is binary, not text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainTextParser は UTF-8 テキストをそのまま返す
type PlainTextParser struct{}

// NewPlainTextParser は新しい PlainTextParser を作成する
func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{}
}

// Parse はテキストを読み込む。バイナリは拒否し、不正なUTF-8は置換する
func (p *PlainTextParser) Parse(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if enry.IsBinary(data) {
		return "", ErrBinaryContent
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}
