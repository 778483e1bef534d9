package parser

import (
	"mime"
	"path/filepath"
	"strings"
)

// extensionMediaTypes は OS の MIME テーブルに依存せず判定する拡張子
var extensionMediaTypes = map[string]string{
	".txt":  MediaTypePlainText,
	".text": MediaTypePlainText,
	".md":   MediaTypePlainText,
	".pdf":  MediaTypePDF,
	".doc":  MediaTypeMSWord,
	".docx": MediaTypeDOCX,
}

// MediaTypeForFileName はファイル名の拡張子からメディアタイプを推定する
// 判定できない場合は空文字を返す
func MediaTypeForFileName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mediaType, ok := extensionMediaTypes[ext]; ok {
		return mediaType
	}
	return normalizeMediaType(mime.TypeByExtension(ext))
}
