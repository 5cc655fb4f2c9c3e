package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// storyCmd は、ストーリー生成の工程だけを実行するのだ。
var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "ストーリー（story_details.txt）のみを生成して保存するのだ。",
	Long: `テーマを基に絵本のストーリーを生成し、本のルートに story_details.txt として
保存するのだ。画像生成は行わないのだよ。
既にストーリーが存在する場合は何もしないので、安心して何度でも実行できるのだ。`,
	Example: "  ap-ehon-go story -b output/okaimono -t 'はじめてのおつかい'",
	RunE:    storyCommand,
}

func init() {
}

func storyCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 設定のロード
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.Options = opts

	slog.Info("ストーリー生成モードを起動するのだ！",
		"book_root", opts.BookRoot,
		"text_model", cfg.GeminiModel,
		"pages", opts.PageCount)

	// 2. 実行
	if err := pipeline.ExecuteStoryOnly(ctx, cfg); err != nil {
		return fmt.Errorf("ストーリー生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("ストーリーの生成が完了したのだ！", "book_root", opts.BookRoot)
	return nil
}
