package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/doc-rag/internal/core/ingestion/chunk"
	"github.com/jinford/doc-rag/internal/core/search"
)

// DefaultEncoding は OpenAI の Embedding / Chat モデルが使うエンコーディング
const DefaultEncoding = "cl100k_base"

// TokenCounter は tiktoken を利用してトークン数をカウントする
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は cl100k_base エンコーディングの TokenCounter を作成する
func NewTokenCounter() (*TokenCounter, error) {
	return NewTokenCounterWithEncoding(DefaultEncoding)
}

// NewTokenCounterWithEncoding はエンコーディングを指定して TokenCounter を作成する
func NewTokenCounterWithEncoding(name string) (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// Truncate はテキストを先頭から maxTokens 以内に切り詰める
func (tc *TokenCounter) Truncate(text string, maxTokens int) string {
	if tc.encoding == nil || maxTokens < 0 {
		return text
	}
	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return tc.encoding.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var (
	_ chunk.TokenCounter = (*TokenCounter)(nil)
	_ search.Truncator   = (*TokenCounter)(nil)
)
