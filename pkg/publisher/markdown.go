package publisher

import (
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// BuildBookMarkdown は、絵本のタイトル、レイアウト済み画像、各ページの本文を
// 統合して go-text-format が解釈可能な Markdown 文字列を生成します。
// 画像はレイアウト済み（テキスト合成済み）を参照し、本文は読み上げや
// 検索のためにテキストとしても併記するのだ。
func BuildBookMarkdown(s *domain.Story) string {
	var sb strings.Builder

	// 1. タイトルと表紙
	sb.WriteString(fmt.Sprintf("# %s\n\n", s.Title))
	sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", s.Title, layoutImagePath(domain.CoverBaseName)))

	// 2. あらすじ
	if s.Meta.Summary != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", s.Meta.Summary))
	}

	// 3. 各ページ
	for _, p := range s.Pages {
		sb.WriteString(fmt.Sprintf("## Page %d\n\n", p.Number))
		sb.WriteString(fmt.Sprintf("![Page %d](%s)\n\n", p.Number, layoutImagePath(domain.PageImageName(p.Number))))
		for _, line := range p.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// layoutImagePath は book.md から見たレイアウト済み画像の相対パスを返します。
func layoutImagePath(name string) string {
	return path.Join(domain.LayoutDirName, name)
}
