package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/internal/prompt"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/gate"
	"github.com/shouni/go-ehon-kit/pkg/story"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// 絵本の挿絵は横長の見開きに収まりやすいアスペクト比で固定するのだ。
const imageAspectRatio = "4:3"

// ネガティブプロンプト: 文字、吹き出し、低品質な描写を徹底的に排除するのだ。
// テキストは後工程のレイアウトエンジンが合成するため、挿絵に文字は不要です。
const negativePrompt = "text, letters, words, alphabet, captions, speech bubble, watermark, signature, low quality, distorted, bad anatomy, scary, violent"

// ImageReport は画像工程の結果サマリーです。
// 検証ゲートが強制承認で通したかどうかを呼び出し側に伝えるのだ。
type ImageReport struct {
	AutoApproved bool
	LastScore    float64
	Attempts     int
}

// ImageRunner は画像工程のインターフェースなのだ。
type ImageRunner interface {
	// Run はストーリーから画像プロンプト一式を作り、検証ゲートを通してから
	// 表紙と全ページの画像を生成して root/images/ に書き出すのだ。
	Run(ctx context.Context, root string, s *domain.Story) (*ImageReport, error)
}

// GeminiImageRunner は Gemini でプロンプト作成・検証・画像生成を行う実体。
// 画像生成はレートリミッターで間隔を空けながら並列実行し、
// 画風参照画像のアップロードは singleflight で一度だけ行うのだ。
type GeminiImageRunner struct {
	cfg         *config.Config
	aiClient    gemini.GenerativeModel
	imageGen    imagekit.ImageGenerator
	assets      imagekit.AssetManager
	writer      remoteio.OutputWriter
	limiter     *rate.Limiter
	uploadGroup singleflight.Group

	mu           sync.RWMutex
	referenceURI string // アップロード済みの画風参照画像の File API URI
}

// NewGeminiImageRunner は GeminiImageRunner の新しいインスタンスを生成して返すのだ。
func NewGeminiImageRunner(
	cfg *config.Config,
	ai gemini.GenerativeModel,
	imgGen imagekit.ImageGenerator,
	assets imagekit.AssetManager,
	w remoteio.OutputWriter,
	limiter *rate.Limiter,
) *GeminiImageRunner {
	return &GeminiImageRunner{
		cfg:      cfg,
		aiClient: ai,
		imageGen: imgGen,
		assets:   assets,
		writer:   w,
		limiter:  limiter,
	}
}

// Run は、プロンプト構築、検証ゲート、画像生成、書き出しを一気に行うのだ。
func (ir *GeminiImageRunner) Run(ctx context.Context, root string, s *domain.Story) (*ImageReport, error) {
	storyText := story.Format(s)

	prompts, err := ir.buildPrompts(ctx, s, storyText)
	if err != nil {
		return nil, err
	}

	// リトライ回数のカウンターの所有権はこちら側にあります。
	// ゲート自身は状態を持たないので、上限の管理はランナーの責務なのだ。
	counter := gate.NewCounter()
	result, err := gate.RunWithBoundedRetry(ctx, counter, prompts,
		ir.validateFunc(storyText),
		ir.improveFunc(storyText),
	)
	if err != nil {
		return nil, err
	}

	if err := ir.generateAll(ctx, root, result.Items); err != nil {
		return nil, err
	}

	report := &ImageReport{
		AutoApproved: result.AutoApproved(),
		Attempts:     result.Attempts,
	}
	if result.Report != nil {
		report.LastScore = result.Report.Overall
	}
	return report, nil
}

// buildPrompts はストーリー全文から表紙+全ページ分の画像プロンプトを作るのだ。
func (ir *GeminiImageRunner) buildPrompts(ctx context.Context, s *domain.Story, storyText string) ([]domain.ImagePrompt, error) {
	promptContent, err := prompt.Render(prompt.KindImage, prompt.TemplateData{
		StoryText: storyText,
		Style:     ir.cfg.Options.Style,
	})
	if err != nil {
		return nil, err
	}

	resp, err := ir.aiClient.GenerateContent(ctx, promptContent, ir.cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("画像プロンプトの生成に失敗したのだ: %w", err)
	}

	prompts, err := parseImagePrompts(resp.Text)
	if err != nil {
		return nil, err
	}
	if err := verifyPromptSet(s, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// validateFunc は検証ゲートに渡す validate コラボレーターを返します。
func (ir *GeminiImageRunner) validateFunc(storyText string) gate.ValidateFunc {
	return func(ctx context.Context, items []domain.ImagePrompt) (*gate.Report, error) {
		promptsJSON, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, err
		}
		promptContent, err := prompt.Render(prompt.KindValidate, prompt.TemplateData{
			StoryText:   storyText,
			TargetAge:   ir.cfg.Options.TargetAge,
			PromptsJSON: string(promptsJSON),
		})
		if err != nil {
			return nil, err
		}
		resp, err := ir.aiClient.GenerateContent(ctx, promptContent, ir.cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("検証の実行に失敗したのだ: %w", err)
		}
		return parseValidationReport(resp.Text)
	}
}

// improveFunc は検証ゲートに渡す improve コラボレーターを返します。
func (ir *GeminiImageRunner) improveFunc(storyText string) gate.ImproveFunc {
	return func(ctx context.Context, items []domain.ImagePrompt, report *gate.Report) ([]domain.ImagePrompt, error) {
		promptsJSON, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, err
		}
		reportJSON, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, err
		}
		promptContent, err := prompt.Render(prompt.KindImprove, prompt.TemplateData{
			StoryText:   storyText,
			Style:       ir.cfg.Options.Style,
			PromptsJSON: string(promptsJSON),
			ReportJSON:  string(reportJSON),
		})
		if err != nil {
			return nil, err
		}
		resp, err := ir.aiClient.GenerateContent(ctx, promptContent, ir.cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("改善の実行に失敗したのだ: %w", err)
		}
		return parseImagePrompts(resp.Text)
	}
}

// generateAll は全プロンプトの画像をレート制限つきで並列生成して書き出すのだ。
func (ir *GeminiImageRunner) generateAll(ctx context.Context, root string, items []domain.ImagePrompt) error {
	refURI, err := ir.prepareReference(ctx)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	slog.Info("並列画像生成を開始するのだ", "count", len(items), "interval", config.DefaultRateLimit)

	for _, item := range items {
		item := item // ゴルーチンのクロージャ対策なのだ

		eg.Go(func() error {
			// クラッシュ後の再開で完成済みのページを作り直さないのだ
			path := filepath.Join(root, domain.ImagesDirName, item.ImageName)
			if artifactExists(path) {
				slog.Info("画像は既存のためスキップするのだ", "name", item.ImageName)
				return nil
			}

			// レートリミットに従って、自分の番が来るまで待機するのだ
			if err := ir.limiter.Wait(egCtx); err != nil {
				return err
			}

			resp, err := ir.imageGen.GenerateMangaPanel(egCtx, imagedom.ImageGenerationRequest{
				Prompt:         fmt.Sprintf("%s, %s", item.Prompt, ir.cfg.ImagePromptSuffix),
				NegativePrompt: negativePrompt,
				FileAPIURI:     refURI,
				AspectRatio:    imageAspectRatio,
			})
			if err != nil {
				slog.Error("画像の生成に失敗したのだ", "name", item.ImageName, "error", err)
				return fmt.Errorf("画像 '%s' の生成に失敗したのだ: %w", item.ImageName, err)
			}

			if err := ir.writer.Write(egCtx, path, bytes.NewReader(resp.Data), resp.MimeType); err != nil {
				return fmt.Errorf("画像 '%s' の書き込みに失敗しました: %w", item.ImageName, err)
			}

			slog.Info("画像を生成したのだ", "name", item.ImageName, "bytes", len(resp.Data))
			return nil
		})
	}
	return eg.Wait()
}

// prepareReference は画風参照画像を File API にアップロードして URI を返します。
// 並行して呼ばれても singleflight により実際のアップロードは一度だけなのだ。
func (ir *GeminiImageRunner) prepareReference(ctx context.Context) (string, error) {
	refURL := ir.cfg.Options.ReferenceURL
	if refURL == "" {
		return "", nil
	}

	ir.mu.RLock()
	uri := ir.referenceURI
	ir.mu.RUnlock()
	if uri != "" {
		return uri, nil
	}

	val, err, _ := ir.uploadGroup.Do(refURL, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが完了させている可能性があるため再確認
		ir.mu.RLock()
		existing := ir.referenceURI
		ir.mu.RUnlock()
		if existing != "" {
			return existing, nil
		}

		uploaded, uploadErr := ir.assets.UploadFile(ctx, refURL)
		if uploadErr != nil {
			return nil, uploadErr
		}

		ir.mu.Lock()
		ir.referenceURI = uploaded
		ir.mu.Unlock()
		return uploaded, nil
	})
	if err != nil {
		return "", fmt.Errorf("参照画像のアップロードに失敗しました: %w", err)
	}

	uri, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("singleflight から予期しない型が返りました: %T", val)
	}
	return uri, nil
}

// artifactExists は path に空でないファイルが既に存在するかを返します。
// 途中でクラッシュした実行の再開時に、完成済みのページを守るための検査なのだ。
func artifactExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// parseImagePrompts は AI の応答から画像プロンプトの JSON 配列を取り出すのだ。
func parseImagePrompts(raw string) ([]domain.ImagePrompt, error) {
	var prompts []domain.ImagePrompt
	if err := json.Unmarshal([]byte(extractJSON(raw, "[", "]")), &prompts); err != nil {
		return nil, fmt.Errorf("画像プロンプトJSONのパースに失敗したのだ: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("画像プロンプトが1件も得られませんでした")
	}
	return prompts, nil
}

// parseValidationReport は AI の応答から検証レポートの JSON を取り出すのだ。
func parseValidationReport(raw string) (*gate.Report, error) {
	var report gate.Report
	if err := json.Unmarshal([]byte(extractJSON(raw, "{", "}")), &report); err != nil {
		return nil, fmt.Errorf("検証レポートJSONのパースに失敗したのだ: %w", err)
	}
	return &report, nil
}

// verifyPromptSet はプロンプト一式が表紙+全ページを過不足なく覆うか検査します。
func verifyPromptSet(s *domain.Story, prompts []domain.ImagePrompt) error {
	expected := s.ArtifactNames()
	got := make(map[string]bool, len(prompts))
	for _, p := range prompts {
		got[p.ImageName] = true
	}
	for _, name := range expected {
		if !got[name] {
			return fmt.Errorf("画像プロンプトに '%s' がありません（%d件中）", name, len(prompts))
		}
	}
	if len(prompts) != len(expected) {
		return fmt.Errorf("画像プロンプトの件数が合いません: 期待 %d件、実際 %d件", len(expected), len(prompts))
	}
	return nil
}
