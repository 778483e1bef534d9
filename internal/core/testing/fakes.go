package testing

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// DefaultFakeDimension は FakeEmbedder のデフォルト次元
const DefaultFakeDimension = 64

// FakeEmbedder は単語の出現頻度をハッシュで次元に割り当てる決定的なEmbedder
// 同じ単語を含むテキスト同士の類似度が高くなる
type FakeEmbedder struct {
	Dimension int
	Err       error

	mu         sync.Mutex
	batchSizes []int
	queries    []string
}

// NewFakeEmbedder は新しい FakeEmbedder を作成する
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{Dimension: DefaultFakeDimension}
}

// Embed は単一テキストのベクトルを返す
func (e *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries = append(e.queries, text)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

// BatchEmbed は入力順にベクトルを返す
func (e *FakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

// BatchSizes は BatchEmbed に渡されたバッチサイズの履歴を返す
func (e *FakeEmbedder) BatchSizes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.batchSizes...)
}

// Queries は Embed に渡されたテキストの履歴を返す
func (e *FakeEmbedder) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func (e *FakeEmbedder) vector(text string) []float32 {
	dim := e.Dimension
	if dim <= 0 {
		dim = DefaultFakeDimension
	}
	v := make([]float32, dim)
	for _, word := range Words(text) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(dim)]++
	}
	return v
}

// Words はテキストを小文字の単語列に分割する
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FakeLLM はプロンプトを記録し、Context 部分を引用した回答を返すLLM
type FakeLLM struct {
	Answer string // 空でなければ固定の回答を返す
	Err    error

	mu      sync.Mutex
	prompts []string
}

// GenerateCompletion はプロンプトを記録して回答を返す
func (l *FakeLLM) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.mu.Unlock()

	if l.Err != nil {
		return "", l.Err
	}
	if l.Answer != "" {
		return l.Answer, nil
	}

	contextBlock := prompt
	if start := strings.Index(prompt, "Context:\n"); start != -1 {
		contextBlock = prompt[start+len("Context:\n"):]
		if end := strings.Index(contextBlock, "\nQuestion:\n"); end != -1 {
			contextBlock = contextBlock[:end]
		}
	}
	contextBlock = strings.TrimSpace(contextBlock)
	if contextBlock == "" {
		return "The document does not contain relevant information.", nil
	}
	return "According to the document: " + contextBlock, nil
}

// Prompts は受け取ったプロンプトの履歴を返す
func (l *FakeLLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}
