package ask

// AskParams は質問応答のパラメータを表す
type AskParams struct {
	DocumentID int64  // 対象ドキュメントID（正の整数）
	Question   string // ユーザーの質問文
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer  string            // LLMによる回答（加工しない）
	Sources []SourceReference // 参照したセグメント
}

// SourceReference は回答の根拠となったセグメントを表す
type SourceReference struct {
	Ordinal int     // ドキュメント内のセグメント順序
	Score   float64 // 関連度スコア
}
