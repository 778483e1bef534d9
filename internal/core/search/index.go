package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/doc-rag/internal/core/document"
)

var (
	// ErrLengthMismatch はベクトル数とセグメント数が一致しない場合のエラー
	ErrLengthMismatch = errors.New("vectors and segments length mismatch")

	// ErrDimensionMismatch はベクトル次元がインデックスと一致しない場合のエラー
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// MemoryIndex は線形走査で厳密検索を行うインメモリの VectorIndex 実装
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	norms     []float64
	segments  []document.Segment
}

// NewMemoryIndex は空の MemoryIndex を作成する
// 次元は最初の AddAll で確定する
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// AddAll はベクトルとセグメントを対応づけて追加する
// 検証に失敗した場合は1件も追加しない
func (m *MemoryIndex) AddAll(vectors [][]float32, segments []document.Segment) error {
	if len(vectors) != len(segments) {
		return fmt.Errorf("%w: %d vectors, %d segments", ErrLengthMismatch, len(vectors), len(segments))
	}
	if len(vectors) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dimension := m.dimension
	if dimension == 0 {
		dimension = len(vectors[0])
	}
	if dimension == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(v), dimension)
		}
	}

	m.dimension = dimension
	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
		m.norms = append(m.norms, norm(vec))
		m.segments = append(m.segments, segments[i])
	}

	return nil
}

// Search は query に対する類似度 (1 + cos) / 2 が minScore 以上のセグメントを返す
// スコア降順、同スコアは挿入順。maxResults <= 0 は0件
func (m *MemoryIndex) Search(query []float32, maxResults int, minScore float64) ([]document.ScoredSegment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxResults <= 0 || len(m.vectors) == 0 {
		return []document.ScoredSegment{}, nil
	}
	if len(query) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), m.dimension)
	}

	queryNorm := norm(query)
	results := make([]document.ScoredSegment, 0, len(m.vectors))
	for i, v := range m.vectors {
		score := RelevanceScore(cosine(query, queryNorm, v, m.norms[i]))
		if score < minScore {
			continue
		}
		results = append(results, document.ScoredSegment{
			Segment: m.segments[i],
			Score:   score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Len は登録済みエントリ数を返す
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// RelevanceScore はコサイン類似度を [0, 1] に写像する
func RelevanceScore(cos float64) float64 {
	score := (1 + cos) / 2
	return math.Max(0, math.Min(1, score))
}

// cosine はゼロベクトルを含む場合 0（直交扱い）を返す
func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// インターフェース実装の確認
var _ document.VectorIndex = (*MemoryIndex)(nil)
