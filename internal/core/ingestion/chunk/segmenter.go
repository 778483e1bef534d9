package chunk

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jinford/doc-rag/internal/core/document"
)

const (
	// DefaultMaxTokens はセグメントの目標トークン数
	DefaultMaxTokens = 300

	// DefaultOverlap はセグメント間のオーバーラップトークン数
	DefaultOverlap = 0

	// maxRunesPerToken は文字単位分割で1トークンあたりに見込む最大文字数
	// 探索範囲を maxTokens * maxRunesPerToken に抑え、長い連続文字列でも線形時間で分割する
	maxRunesPerToken = 16
)

// TokenCounter はテキストのトークン数を数える
// 取り込みと質問で同じ実装を使うこと
type TokenCounter interface {
	CountTokens(text string) int
}

// separatorTier は再帰分割の1段階を表す
type separatorTier struct {
	name  string
	split func(text string) []string
	join  string
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?。！？][\p{Pe}\p{Pf}"']*\s+`)
)

// 段落 → 行 → 文 → 単語 の順に分割し、それでも収まらなければ文字単位で分割する
var tiers = []separatorTier{
	{name: "paragraph", split: func(s string) []string { return paragraphBreak.Split(s, -1) }, join: "\n\n"},
	{name: "line", split: func(s string) []string { return strings.Split(s, "\n") }, join: "\n"},
	{name: "sentence", split: splitSentences, join: " "},
	{name: "word", split: strings.Fields, join: " "},
}

// Segmenter はテキストをトークン上限以内のセグメントに再帰的に分割する
type Segmenter struct {
	counter   TokenCounter
	maxTokens int
}

type SegmenterOption func(*Segmenter)

// WithMaxTokens はセグメントのトークン上限を上書きする
func WithMaxTokens(maxTokens int) SegmenterOption {
	return func(s *Segmenter) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// NewSegmenter は新しい Segmenter を作成する
// counter が nil の場合は単語近似の WordCounter を使う
func NewSegmenter(counter TokenCounter, opts ...SegmenterOption) *Segmenter {
	if counter == nil {
		counter = WordCounter{}
	}
	s := &Segmenter{
		counter:   counter,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxTokens はセグメントのトークン上限を返す
func (s *Segmenter) MaxTokens() int {
	return s.maxTokens
}

// Split はテキストを順序を保ったセグメント列に分割する
// 空白のみのセグメントは除外する
func (s *Segmenter) Split(text string) []document.Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	pieces := s.split(text, 0)

	segments := make([]document.Segment, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		segments = append(segments, document.Segment{
			Ordinal: len(segments),
			Text:    piece,
			Tokens:  s.counter.CountTokens(piece),
		})
	}
	return segments
}

func (s *Segmenter) fits(text string) bool {
	return s.counter.CountTokens(text) <= s.maxTokens
}

// split は tier 段目の区切りで分割し、上限に収まる範囲で隣接片を結合する
func (s *Segmenter) split(text string, tier int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.fits(text) {
		return []string{text}
	}
	if tier >= len(tiers) {
		return s.splitRunes(text)
	}

	t := tiers[tier]
	var (
		out     []string
		current string
	)
	flush := func() {
		if current != "" {
			out = append(out, current)
			current = ""
		}
	}

	for _, part := range t.split(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !s.fits(part) {
			flush()
			out = append(out, s.split(part, tier+1)...)
			continue
		}

		if current == "" {
			current = part
			continue
		}

		candidate := current + t.join + part
		if s.fits(candidate) {
			current = candidate
			continue
		}
		flush()
		current = part
	}
	flush()

	return out
}

// splitRunes は区切りのない長い文字列を文字単位で上限以内に分割する
func (s *Segmenter) splitRunes(text string) []string {
	var out []string
	runes := []rune(text)

	for len(runes) > 0 {
		// 探索範囲内で上限に収まる最長の接頭辞を二分探索で求める
		lo, hi := 1, min(len(runes), s.maxTokens*maxRunesPerToken)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if s.fits(string(runes[:mid])) {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		out = append(out, string(runes[:lo]))
		runes = runes[lo:]
	}
	return out
}

// splitSentences は文末記号と後続の空白で文を区切る（記号は前の文に残す）
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, text[last:])
	}
	return out
}

// WordCounter は単語と句読点を1トークンとして数える近似実装
type WordCounter struct{}

// CountTokens は文字・数字の連続と、それ以外の非空白文字1つずつを数える
func (WordCounter) CountTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if !inWord {
				count++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			count++
			inWord = false
		}
	}
	return count
}
