package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/prompt"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/story"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-web-exact/v2/pkg/extract"
)

// テーマURLから取り込む本文の上限。プロンプトが際限なく膨らむのを防ぐのだ。
const themeSourceLimit = 4000

// StoryRunner はストーリー工程のインターフェースなのだ。
type StoryRunner interface {
	// Run はストーリーを生成して root に story_details.txt を書き出し、
	// 解析済みのストーリーを返すのだ。
	Run(ctx context.Context, root string) (*domain.Story, error)
}

// GeminiStoryRunner は Gemini にストーリーを書かせ、決定論的な
// 契約形式に解析してからチェックポイントとして永続化する実装です。
type GeminiStoryRunner struct {
	cfg       *config.Config
	extractor *extract.Extractor     // テーマの種にするWebページ本文の抽出に使う
	aiClient  gemini.GenerativeModel // Gemini APIと通信するクライアント
	writer    remoteio.OutputWriter  // ローカルやGCSへの書き込みライター
}

// NewGeminiStoryRunner は GeminiStoryRunner の新しいインスタンスを生成して返すのだ。
func NewGeminiStoryRunner(
	cfg *config.Config,
	ext *extract.Extractor,
	ai gemini.GenerativeModel,
	w remoteio.OutputWriter,
) *GeminiStoryRunner {
	return &GeminiStoryRunner{
		cfg:       cfg,
		extractor: ext,
		aiClient:  ai,
		writer:    w,
	}
}

// Run は、テーマの解決、プロンプト構築、AIによる生成、結果の解析と永続化を一気に行うのだ。
func (sr *GeminiStoryRunner) Run(ctx context.Context, root string) (*domain.Story, error) {
	theme, err := sr.resolveTheme(ctx)
	if err != nil {
		return nil, err
	}

	opts := sr.cfg.Options
	promptContent, err := prompt.Render(prompt.KindStory, prompt.TemplateData{
		Theme:        theme,
		TargetAge:    opts.TargetAge,
		PageCount:    opts.PageCount,
		LinesPerPage: opts.LinesPerPage,
	})
	if err != nil {
		return nil, err
	}

	resp, err := sr.aiClient.GenerateContent(ctx, promptContent, sr.cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("ストーリーの生成に失敗したのだ: %w", err)
	}

	// 形式違反はここで *domain.MalformedStoryError として即座に弾きます。
	// 壊れたストーリーをチェックポイントに書き込んでしまうと、
	// 以降の再開がすべて失敗し続けるからなのだ。
	s, err := story.Parse(domain.StoryFileName, stripCodeFence(resp.Text))
	if err != nil {
		return nil, err
	}

	path := filepath.Join(root, domain.StoryFileName)
	if err := sr.writer.Write(ctx, path, strings.NewReader(story.Format(s)), "text/plain; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("ストーリーファイルの書き込みに失敗しました: %w", err)
	}

	slog.Info("ストーリーを生成しました", "title", s.Title, "pages", s.PageCount(), "path", path)
	return s, nil
}

// resolveTheme は、URL指定があればWebページ本文をテーマの種として取り込み、
// なければ --theme の値をそのまま使うのだ。
func (sr *GeminiStoryRunner) resolveTheme(ctx context.Context) (string, error) {
	opts := sr.cfg.Options
	if opts.ThemeURL != "" {
		text, _, err := sr.extractor.FetchAndExtractText(ctx, opts.ThemeURL)
		if err != nil {
			return "", fmt.Errorf("テーマ元ページの取得に失敗しました: %w", err)
		}
		if runes := []rune(text); len(runes) > themeSourceLimit {
			text = string(runes[:themeSourceLimit])
		}
		return text, nil
	}
	if strings.TrimSpace(opts.Theme) == "" {
		return "", fmt.Errorf("テーマが指定されていません。--theme か --theme-url を指定してほしいのだ")
	}
	return opts.Theme, nil
}
