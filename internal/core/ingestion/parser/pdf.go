package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser は PDF からプレーンテキストを抽出する
type PDFParser struct{}

// NewPDFParser は新しい PDFParser を作成する
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse は PDF 全ページのテキストを抽出する
func (p *PDFParser) Parse(ctx context.Context, r io.Reader) (text string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	// 壊れた PDF では pdf パッケージが panic することがある
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	return sb.String(), nil
}
