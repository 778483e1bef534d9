package ask

import (
	"strings"

	"github.com/jinford/doc-rag/internal/core/document"
)

const promptPreamble = "You are an assistant that answers questions based on the provided document.\n\n"

// BuildAskPrompt はRAG質問応答用のプロンプトを構築する
// セグメントは渡された順に、本文を加工せず1行ずつ並べる
func BuildAskPrompt(question string, segments []document.ScoredSegment) string {
	var sb strings.Builder

	sb.WriteString(promptPreamble)

	sb.WriteString("Context:\n")
	for _, seg := range segments {
		sb.WriteString(seg.Segment.Text)
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}
