package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-ehon-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は、全サブコマンドで共有する実行時オプションなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 本の指定関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.BookRoot, "book-root", "b", config.DefaultBookRoot, "チェックポイント一式を置く本のルートディレクトリなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Theme, "theme", "t", "", "絵本のテーマなのだ（例: 'はじめてのおつかい'）。")
	rootCmd.PersistentFlags().StringVarP(&opts.ThemeURL, "theme-url", "u", "", "テーマの種にするWebページのURLなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TargetAge, "target-age", config.DefaultTargetAge, "対象年齢なのだ。")
	rootCmd.PersistentFlags().IntVarP(&opts.PageCount, "pages", "p", config.DefaultPageCount, "絵本のページ数なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.LinesPerPage, "lines-per-page", config.DefaultLinesPerPage, "1ページあたりの本文の最大行数なのだ。")

	// --- 画像・レイアウト関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Style, "style", "s", "watercolor", "挿絵の画風なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.LayoutMode, "layout-mode", "l", config.DefaultLayoutMode, "テキスト合成モード（adjacent / overlay）なのだ。")
	rootCmd.PersistentFlags().Float64Var(&opts.FontSize, "font-size", config.DefaultFontSize, "本文の初期フォントサイズなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.FontPath, "font", "", "本文描画に使うフォント（TTF/TTC）のパスなのだ。未指定ならシステムの日本語フォントを探すのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.ReferenceURL, "reference-url", "r", "", "画風を揃えるための参照画像URLなのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "使用する Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "使用する画像生成モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.Publish, "publish", false, "完成後に book.md / book.html も書き出すのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// status コマンドはディスクを読むだけなので、APIキーなしで動かせるのだ
	if cmd.Name() == "status" {
		return nil
	}

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"ap-ehon-go",
		addAppFlags,
		preRunAppE,
		bookCmd,
		storyCmd,
		imageCmd,
		layoutCmd,
		statusCmd,
	)
}
