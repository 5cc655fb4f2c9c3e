package cmd

import (
	"log/slog"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// imageCmd は、確定済みストーリーを基に画像生成の工程だけを実行するのだ。
// ストーリー生成をスキップして、表紙とページ画像の生成のみを行うのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "ストーリーから表紙とページ画像を生成して保存するのだ。",
	Long: `本のルートにある story_details.txt を読み込み、表紙と全ページの画像を
生成して images/ に保存するのだ。画像プロンプトは検証ゲートを通してから使うので、
品質が低いまま進むことはない（上限に達したら強制承認で前進する）のだよ。`,
	Example: "  ap-ehon-go image -b output/okaimono -s watercolor",
	RunE:    imageCommand,
}

// init は、image コマンドに必要なフラグを定義し、コマンド体系に登録するための初期化関数なのだ。
func init() {
}

// imageCommand は、image サブコマンドの実行ロジック本体なのだ。
func imageCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 環境変数から基本設定をロード
	cfg := config.LoadConfig()

	// 2. コマンドライン引数の値を反映
	cfg.Options = opts
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel

	slog.Info("画像生成モードを起動するのだ！",
		"book_root", opts.BookRoot,
		"image_model", cfg.GeminiImageModel,
		"style", opts.Style)

	// 3. パイプライン実行
	return pipeline.ExecuteImagesOnly(ctx, cfg)
}
