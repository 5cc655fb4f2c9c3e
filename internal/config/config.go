package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel             = "gemini-3-flash-preview"
	DefaultImageModel        = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultRateLimit         = 10 * time.Second
	DefaultBookRoot          = "output/book" // 本のルートディレクトリ（チェックポイントの置き場所）
	DefaultPageCount         = 3
	DefaultLinesPerPage      = 4
	DefaultTargetAge         = "3-5歳"
	DefaultFontSize          = 60
	DefaultLayoutMode        = "adjacent"
	DefaultImagePromptSuffix = "children's picture book illustration, watercolor style, soft pastel colors, warm lighting, gentle brush strokes, storybook art, consistent character design, no text, no letters, high resolution"
)

// Config はアプリケーション全体の環境設定（APIキーやクラウド設定）を保持する構造体なのだ。
type Config struct {
	ProjectID         string
	LocationID        string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiImageModel  string
	ImagePromptSuffix string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		ProjectID:         envutil.GetEnv("PROJECT_ID", ""),
		LocationID:        envutil.GetEnv("REGION", ""),
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:       envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel:  envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		ImagePromptSuffix: envutil.GetEnv("IMAGE_PROMPT_SUFFIX", DefaultImagePromptSuffix),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 本の指定関連
	BookRoot     string // --book-root: チェックポイント一式を置くルート
	Theme        string // --theme: 絵本のテーマ
	ThemeURL     string // --theme-url: テーマの種にするWebページ
	TargetAge    string // --target-age
	PageCount    int    // --pages
	LinesPerPage int    // --lines-per-page

	// 画像・レイアウト関連
	Style        string  // --style: 画風
	LayoutMode   string  // --layout-mode: adjacent / overlay
	FontSize     float64 // --font-size
	FontPath     string  // --font: 本文描画に使うフォント（TTF/TTC）のパス
	ReferenceURL string  // --reference-url: 画風を揃える参照画像

	// AI挙動設定
	AIModel    string // --model: テキスト生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
	Publish     bool          // --publish: 完了後に book.md / book.html を書き出す
}
