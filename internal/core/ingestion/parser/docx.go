package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxDocumentPart = "word/document.xml"

// ErrMissingDocumentPart は DOCX に本文パートが含まれない場合のエラー
var ErrMissingDocumentPart = errors.New("docx: word/document.xml not found")

// DOCXParser は Office Open XML 形式の Word 文書から本文を抽出する
type DOCXParser struct{}

// NewDOCXParser は新しい DOCXParser を作成する
func NewDOCXParser() *DOCXParser {
	return &DOCXParser{}
}

// Parse は word/document.xml の段落テキストを改行区切りで返す
func (p *DOCXParser) Parse(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	for _, f := range archive.File {
		if f.Name != docxDocumentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", docxDocumentPart, err)
		}
		defer rc.Close()
		return extractWordprocessingText(rc)
	}

	return "", ErrMissingDocumentPart
}

// extractWordprocessingText は w:t を連結し、w:p ごとに改行、w:tab をタブ、w:br を改行として扱う
// 表（w:tbl）内の段落も本文として抽出する
func extractWordprocessingText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxDocumentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
