package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-ehon-kit/pkg/domain"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-text-format/pkg/md2htmlrunner"
)

const (
	defaultBookName = "book.md"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string // 本のルート。book.md / book.html をここに書き出します
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string // 生成された book.md のパス
	HTMLPath     string // 生成された HTML のパス
}

// BookPublisher は完成した絵本の Markdown 化と HTML 変換を担います。
// レイアウト済み画像（text_adjacent/）を参照するので、レイアウト工程の
// 完了後に呼ぶことが前提なのだ。
type BookPublisher struct {
	writer     remoteio.OutputWriter
	htmlRunner md2htmlrunner.Runner
}

// NewBookPublisher は BookPublisher の新しいインスタンスを生成して返すのだ。
func NewBookPublisher(writer remoteio.OutputWriter, htmlRunner md2htmlrunner.Runner) *BookPublisher {
	return &BookPublisher{
		writer:     writer,
		htmlRunner: htmlRunner,
	}
}

// Publish は Markdown の構築と書き出し、HTML 変換を一括して実行し、生成されたファイル情報を返却するのだ！
func (p *BookPublisher) Publish(ctx context.Context, s *domain.Story, opts Options) (PublishResult, error) {
	result := PublishResult{}

	// 1. 出力パスの解決
	markdown, err := ResolveOutputPath(opts.OutputDir, defaultBookName)
	if err != nil {
		return result, err
	}
	result.MarkdownPath = markdown

	// 2. Markdownテキストの構築と書き出し
	content := BuildBookMarkdown(s)
	if err := p.writer.Write(ctx, markdown, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	// 3. HTML変換と保存
	if p.htmlRunner != nil {
		slog.Info("絵本をHTMLに変換するのだ", "title", s.Title)
		htmlBuffer, err := p.htmlRunner.Run(ctx, s.Title, []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		htmlPath := strings.TrimSuffix(markdown, ".md") + ".html"
		if err := p.writer.Write(ctx, htmlPath, htmlBuffer, "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}
