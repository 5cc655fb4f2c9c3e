package cmd

import (
	"log/slog"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// layoutCmd は、生成済み画像にページ本文を合成する工程だけを実行するのだ。
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "生成済みの画像にページ本文を合成して保存するのだ。",
	Long: `本のルートにある images/ の画像にページ本文を合成し、text_adjacent/ に
保存するのだ。既定の adjacent モードはキャンバスを横に広げて元画像に一切触れず、
overlay モードは画像の静かな領域を探してコントラストを保証しながら重ねるのだよ。`,
	Example: "  ap-ehon-go layout -b output/okaimono -l overlay",
	RunE:    layoutCommand,
}

func init() {
}

func layoutCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("レイアウトモードを起動するのだ！",
		"book_root", opts.BookRoot,
		"layout_mode", opts.LayoutMode,
		"font_size", opts.FontSize)

	return pipeline.ExecuteLayoutOnly(ctx, cfg)
}
