package document

import (
	"io"
	"time"
)

// Segment はドキュメントから切り出されたテキスト断片を表す
type Segment struct {
	Ordinal int    // ドキュメント内の順序（0始まり）
	Text    string // セグメント本文
	Tokens  int    // トークン数（Segmenterの計測値）
}

// ScoredSegment は類似度スコア付きのセグメントを表す
type ScoredSegment struct {
	Segment Segment
	Score   float64 // (1 + cos) / 2 で [0, 1] に正規化した類似度
}

// VectorIndex は1ドキュメント分の (Embedding, Segment) を保持する検索インデックス
type VectorIndex interface {
	// AddAll はベクトルとセグメントを対応づけて追加する
	AddAll(vectors [][]float32, segments []Segment) error

	// Search は minScore 以上の結果を最大 maxResults 件、スコア降順で返す
	Search(query []float32, maxResults int, minScore float64) ([]ScoredSegment, error)

	// Len は登録済みエントリ数を返す
	Len() int
}

// Document は登録済みドキュメントを表す
// Registry に公開された後は不変
type Document struct {
	ID        int64
	FileName  string
	MediaType string
	Segments  int // 取り込み時のセグメント数
	Chars     int // パース後テキストの文字数
	Index     VectorIndex
	CreatedAt time.Time
}

// File はアップロードされたファイルを表す
type File struct {
	Name      string    // 元のファイル名
	MediaType string    // 申告されたメディアタイプ（Content-Type）
	Size      int64     // バイト数（不明なら0）
	Content   io.Reader // ファイル本文
}
