package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shouni/go-ehon-kit/internal/builder"
	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/pkg/checkpoint"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/story"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// Execute は本のルートを検査し、残っている工程をすべて実行して完了させるのだ。
// 途中でクラッシュしても、同じコマンドをもう一度実行すれば続きから再開できます。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	coordinator, err := buildCoordinator(ctx, appCtx)
	if err != nil {
		return err
	}

	status, err := coordinator.Advance(ctx, appCtx.Options.BookRoot)
	if err != nil {
		return err
	}
	reportStatus(status)

	if !status.Done {
		return fmt.Errorf("一部のページが失敗したため、本は未完成です（root: %s）", status.Root)
	}

	// --publish 指定時は book.md / book.html も書き出すのだ
	if appCtx.Options.Publish {
		return runPublishStep(ctx, appCtx)
	}

	slog.Info("絵本が完成したのだ！", "root", status.Root, "title", status.Title)
	return nil
}

// ExecuteStoryOnly はストーリー工程だけを実行するのだ。
// 既にストーリーが存在する場合は何もしません（上書きで壊したりしないのだ）。
func ExecuteStoryOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	root := appCtx.Options.BookRoot

	action, err := checkpoint.NextAction(root)
	if err != nil {
		return err
	}
	if action != checkpoint.ActionProduceStory {
		slog.Info("ストーリーは既に存在するため、何もしないのだ", "root", root)
		return nil
	}

	storyRunner, err := builder.BuildStoryRunner(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("StoryRunnerの構築に失敗したのだ: %w", err)
	}
	if _, err := storyRunner.Run(ctx, root); err != nil {
		return err
	}

	return verifyAdvanced(root, checkpoint.ActionProduceStory)
}

// ExecuteImagesOnly は画像工程だけを実行するのだ。ストーリーが先に必要です。
func ExecuteImagesOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	root := appCtx.Options.BookRoot

	action, err := checkpoint.NextAction(root)
	if err != nil {
		return err
	}
	switch action {
	case checkpoint.ActionProduceStory:
		return fmt.Errorf("ストーリーがまだありません。先に story コマンドを実行してほしいのだ（root: %s）", root)
	case checkpoint.ActionProduceImages:
		// 続けて画像を生成するのだ
	default:
		slog.Info("画像は既に揃っているため、何もしないのだ", "root", root)
		return nil
	}

	s, err := story.LoadFile(filepath.Join(root, domain.StoryFileName))
	if err != nil {
		return err
	}

	imageRunner, err := builder.BuildImageRunner(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("ImageRunnerの構築に失敗したのだ: %w", err)
	}
	report, err := imageRunner.Run(ctx, root, s)
	if err != nil {
		return err
	}
	if report.AutoApproved {
		slog.Warn("検証ゲートが強制承認で通過したのだ", "attempts", report.Attempts, "last_score", report.LastScore)
	}

	return verifyAdvanced(root, checkpoint.ActionProduceImages)
}

// ExecuteLayoutOnly はレイアウト工程だけを実行するのだ。画像一式が先に必要です。
func ExecuteLayoutOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	root := appCtx.Options.BookRoot

	action, err := checkpoint.NextAction(root)
	if err != nil {
		return err
	}
	switch action {
	case checkpoint.ActionProduceStory, checkpoint.ActionProduceImages:
		return fmt.Errorf("画像一式がまだ揃っていません。先に image コマンドを実行してほしいのだ（root: %s）", root)
	case checkpoint.ActionProduceLayout:
		// 続けてレイアウトを実行するのだ
	default:
		slog.Info("レイアウトは既に完了しているため、何もしないのだ", "root", root)
		return nil
	}

	s, err := story.LoadFile(filepath.Join(root, domain.StoryFileName))
	if err != nil {
		return err
	}

	layoutRunner, err := builder.BuildLayoutRunner(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("LayoutRunnerの構築に失敗したのだ: %w", err)
	}
	report, err := layoutRunner.Run(ctx, root, s)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		for name, msg := range report.Failed {
			slog.Error("レイアウトに失敗したページがあるのだ", "name", name, "error", msg)
		}
		return fmt.Errorf("%d ページのレイアウトに失敗しました", len(report.Failed))
	}

	return verifyAdvanced(root, checkpoint.ActionProduceLayout)
}

// ExecutePublish は完成した本から book.md / book.html を書き出すのだ。
func ExecutePublish(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	return runPublishStep(ctx, appCtx)
}

// buildCoordinator は 3 工程の Runner を束ねた Coordinator を構築するのだ。
func buildCoordinator(ctx context.Context, appCtx *builder.AppContext) (*Coordinator, error) {
	storyRunner, err := builder.BuildStoryRunner(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("StoryRunnerの構築に失敗したのだ: %w", err)
	}
	imageRunner, err := builder.BuildImageRunner(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("ImageRunnerの構築に失敗したのだ: %w", err)
	}
	layoutRunner, err := builder.BuildLayoutRunner(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("LayoutRunnerの構築に失敗したのだ: %w", err)
	}
	return NewCoordinator(storyRunner, imageRunner, layoutRunner), nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// ライフサイクル管理用の context と設定オブジェクトを受け取るのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	httpClient := httpkit.New(config.DefaultHTTPTimeout)
	aiClient, err := builder.InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer)
	return &appCtx, nil
}

// runPublishStep は PublisherRunner を使って最終成果物を保存するのだ
func runPublishStep(ctx context.Context, appCtx *builder.AppContext) error {
	slog.Info("公開処理を開始するのだ...")
	publishRunner, err := builder.BuildPublisherRunner(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("PublishRunnerの構築に失敗したのだ: %w", err)
	}

	root := appCtx.Options.BookRoot
	s, err := story.LoadFile(filepath.Join(root, domain.StoryFileName))
	if err != nil {
		return err
	}

	result, err := publishRunner.Run(ctx, s)
	if err != nil {
		return fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}
	slog.Info("公開処理が完了したのだ！", "markdown", result.MarkdownPath, "html", result.HTMLPath)
	return nil
}

// verifyAdvanced は工程実行後にチェックポイントを再検査し、
// 同じ工程が残ったままなら検証エラーで停止するのだ。
func verifyAdvanced(root string, executed checkpoint.Action) error {
	next, err := checkpoint.NextAction(root)
	if err != nil {
		return err
	}
	if next == executed {
		return &domain.ArtifactVerificationError{Stage: executed.String(), Root: root}
	}
	return nil
}

// reportStatus はページごとの成否の内訳をログに出力するのだ。
func reportStatus(status *domain.BookStatus) {
	for _, p := range status.Pages {
		attrs := []any{
			"name", p.Name,
			"image", p.Image.Exists,
			"layout", p.Layout.Exists,
		}
		if p.AutoApproved {
			attrs = append(attrs, "auto_approved", true)
		}
		if p.Err != "" {
			attrs = append(attrs, "error", p.Err)
		}
		slog.Info("ページの状態なのだ", attrs...)
	}
	for _, w := range status.Warnings {
		slog.Warn(w)
	}
}
