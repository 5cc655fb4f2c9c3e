package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/runner"
	"github.com/shouni/go-ehon-kit/pkg/layout"
	"github.com/shouni/go-ehon-kit/pkg/publisher"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-text-format/pkg/builder"
	"github.com/shouni/go-web-exact/v2/pkg/extract"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// 画像キャッシュとFile APIリソースの寿命の既定値なのだ
const (
	defaultCacheExpiration   = 30 * time.Minute
	cacheCleanupInterval     = 10 * time.Minute
	defaultTTL               = 47 * time.Hour
	defaultGeminiTemperature = float32(0.2)
)

// BuildStoryRunner はストーリー生成を担当する Runner を構築します。
func BuildStoryRunner(ctx context.Context, appCtx *AppContext) (runner.StoryRunner, error) {
	extractor, err := extract.NewExtractor(appCtx.httpClient)
	if err != nil {
		return nil, err
	}
	return runner.NewGeminiStoryRunner(appCtx.Config, extractor, appCtx.aiClient, appCtx.Writer), nil
}

// BuildImageRunner は表紙とページ画像の生成を担当する Runner を構築します。
func BuildImageRunner(ctx context.Context, appCtx *AppContext) (runner.ImageRunner, error) {
	core, err := initializeCore(appCtx)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗したのだ: %w", err)
	}

	imgGen, err := imagekit.NewGeminiGenerator(appCtx.Config.GeminiImageModel, core)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗したのだ: %w", err)
	}

	// Burst 2 により、開始直後の2枚までは同時にリクエストを開始できるのだ
	limiter := rate.NewLimiter(rate.Every(config.DefaultRateLimit), 2)

	return runner.NewGeminiImageRunner(
		appCtx.Config,
		appCtx.aiClient,
		imgGen,
		core,
		appCtx.Writer,
		limiter,
	), nil
}

// BuildLayoutRunner はテキスト合成を担当する Runner を構築します。
func BuildLayoutRunner(ctx context.Context, appCtx *AppContext) (runner.LayoutRunner, error) {
	opts := layout.DefaultOptions()
	if appCtx.Options.FontSize > 0 {
		opts.FontSize = appCtx.Options.FontSize
	}
	opts.FontPath = appCtx.Options.FontPath

	engine, err := layout.New(opts)
	if err != nil {
		return nil, fmt.Errorf("レイアウトエンジンの初期化に失敗しました: %w", err)
	}

	mode := layout.ParseMode(appCtx.Options.LayoutMode)
	return runner.NewEngineLayoutRunner(engine, mode, appCtx.Writer, opts.JPEGQuality), nil
}

// BuildPublisherRunner はコンテンツ保存と変換を行う Runner を構築します。
func BuildPublisherRunner(ctx context.Context, appCtx *AppContext) (runner.PublisherRunner, error) {
	config := builder.BuilderConfig{
		EnableHardWraps: true,
		Mode:            "webtoon",
	}
	appBuilder, err := builder.NewBuilder(config)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションビルダーの初期化に失敗しました: %w", err)
	}

	md2htmlRunner, err := appBuilder.BuildRunner()
	if err != nil {
		return nil, fmt.Errorf("MarkdownToHtmlRunnerの初期化に失敗しました: %w", err)
	}

	pub := publisher.NewBookPublisher(appCtx.Writer, md2htmlRunner)
	return runner.NewDefaultPublisherRunner(appCtx.Options, pub), nil
}

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeCore 提供された依存関係で構成された GeminiImageCore インスタンスを初期化して返します。
func initializeCore(appCtx *AppContext) (*imagekit.GeminiImageCore, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		appCtx.aiClient,
		appCtx.Reader,
		appCtx.httpClient,
		imgCache,
		defaultTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	return core, nil
}
