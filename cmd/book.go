package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// bookCmd は、残っている工程をすべて実行して絵本を完成させるのだ。
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "絵本を最後まで作り上げるのだ。途中からでも再開できるのだよ。",
	Long: `本のルートディレクトリを検査し、ストーリー生成・画像生成・テキスト合成のうち
まだ終わっていない工程だけを順に実行するのだ。
途中でクラッシュしても、同じコマンドをもう一度実行すれば続きから再開できるのだよ。`,
	Example: "  ap-ehon-go book -b output/okaimono -t 'はじめてのおつかい' -p 5",
	RunE:    bookCommand,
}

func init() {
}

func bookCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts

	slog.Info("絵本パイプラインを起動するのだ！",
		"book_root", opts.BookRoot,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"layout_mode", opts.LayoutMode)

	// 2. 残っている工程を順に実行するのだ
	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての工程が完了したのだ！")
	return nil
}
