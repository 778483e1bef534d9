package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	// minTextRun は本文とみなす連続文字数の下限
	minTextRun = 4

	// maxWideUnit 以上の UTF-16 コード単位は本文とみなさない
	// ASCII 2文字の組が CJK 文字として誤読されるのを防ぐ（Latin Extended-B まで）
	maxWideUnit = 0x0250
)

// MSWordParser は旧形式（Word 97-2003）の .doc から可読テキストを抽出する
// バイナリ構造は解釈せず、UTF-16LE と 8bit の可読文字列のうち多い方を採用する
type MSWordParser struct {
	minRun int
}

// NewMSWordParser は新しい MSWordParser を作成する
func NewMSWordParser() *MSWordParser {
	return &MSWordParser{minRun: minTextRun}
}

// Parse は可読文字列を改行区切りで返す
func (p *MSWordParser) Parse(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read doc: %w", err)
	}

	wide := p.utf16Runs(data)
	narrow := p.byteRuns(data)

	if countLetters(wide) >= countLetters(narrow) {
		return strings.Join(wide, "\n"), nil
	}
	return strings.Join(narrow, "\n"), nil
}

// utf16Runs は UTF-16LE として可読な連続区間を抽出する
func (p *MSWordParser) utf16Runs(data []byte) []string {
	var (
		runs    []string
		current []uint16
	)
	flush := func() {
		if len(current) >= p.minRun {
			if run := strings.TrimSpace(string(utf16.Decode(current))); run != "" {
				runs = append(runs, run)
			}
		}
		current = current[:0]
	}

	for i := 0; i+1 < len(data); i += 2 {
		unit := uint16(data[i]) | uint16(data[i+1])<<8
		if unit < maxWideUnit && isReadable(rune(unit)) {
			current = append(current, unit)
			continue
		}
		flush()
	}
	flush()

	return runs
}

// byteRuns は ASCII / Latin-1 として可読な連続区間を抽出する
func (p *MSWordParser) byteRuns(data []byte) []string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if len(current) >= p.minRun {
			if run := strings.TrimSpace(string(current)); run != "" {
				runs = append(runs, run)
			}
		}
		current = current[:0]
	}

	for _, b := range data {
		r := rune(b)
		if b < 0x80 && isReadable(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()

	return runs
}

func isReadable(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	return unicode.IsPrint(r)
}

func countLetters(runs []string) int {
	n := 0
	for _, run := range runs {
		for _, r := range run {
			if unicode.IsLetter(r) {
				n++
			}
		}
	}
	return n
}
