package openai

import (
	"fmt"
	"strings"
)

// chatModelNames は設定で使う列挙名とAPIのモデルIDの対応表
var chatModelNames = map[string]string{
	"GPT_3_5_TURBO":       "gpt-3.5-turbo",
	"GPT_4":               "gpt-4",
	"GPT_4_TURBO":         "gpt-4-turbo",
	"GPT_4_TURBO_PREVIEW": "gpt-4-turbo-preview",
	"GPT_4_O":             "gpt-4o",
	"GPT_4_O_MINI":        "gpt-4o-mini",
	"GPT_4_1":             "gpt-4.1",
	"GPT_4_1_MINI":        "gpt-4.1-mini",
	"GPT_4_1_NANO":        "gpt-4.1-nano",
	"O1":                  "o1",
	"O1_MINI":             "o1-mini",
	"O3_MINI":             "o3-mini",
}

// ResolveChatModel は列挙名（GPT_4_O_MINI 等）をAPIのモデルIDに変換する
// 小文字を含む値はモデルIDとしてそのまま扱う
func ResolveChatModel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel, nil
	}
	if id, ok := chatModelNames[name]; ok {
		return id, nil
	}
	if strings.ToUpper(name) != name {
		return name, nil
	}
	return "", fmt.Errorf("unknown chat model name: %s", name)
}
