package runner

import (
	"regexp"
	"strings"
)

// AIの応答からコードブロックの中身を取り出すための正規表現なのだ
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// stripCodeFence は AI が付けがちな Markdown のコードブロックを剥がします。
// フェンスが無ければ前後の空白だけ落として返します。
func stripCodeFence(raw string) string {
	if m := jsonBlockRegex.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// extractJSON はフェンス除去後のテキストから JSON 本体を切り出します。
// open/close には "[" と "]"（配列）または "{" と "}"（オブジェクト）を渡すのだ。
func extractJSON(raw, open, shut string) string {
	text := stripCodeFence(raw)
	start := strings.Index(text, open)
	end := strings.LastIndex(text, shut)
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
