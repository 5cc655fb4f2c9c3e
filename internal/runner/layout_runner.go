package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/layout"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// LayoutReport はレイアウト工程の結果です。失敗はページ単位で記録され、
// 1ページの失敗が兄弟ページの処理を巻き込むことはありません。
type LayoutReport struct {
	Composed []string          // 今回の実行で書き出したアーティファクト名
	Skipped  []string          // 既に新鮮なレイアウトが存在したため飛ばした名前
	Failed   map[string]string // アーティファクト名 -> エラーメッセージ
}

// LayoutRunner はレイアウト工程のインターフェースなのだ。
type LayoutRunner interface {
	// Run は root/images/ の全画像にテキストを合成して root/text_adjacent/ に
	// 書き出し、ページごとの成否を返すのだ。
	Run(ctx context.Context, root string, s *domain.Story) (*LayoutReport, error)
}

// EngineLayoutRunner はレイアウトエンジンでテキスト合成を行う実体。
// 一冊の中でスタイルが揃うよう、StyleMemory を持ち回りながら
// 表紙から最終ページまで順に処理します。
type EngineLayoutRunner struct {
	engine  *layout.Engine
	mode    layout.Mode
	writer  remoteio.OutputWriter
	quality int
}

// NewEngineLayoutRunner は EngineLayoutRunner の新しいインスタンスを生成して返すのだ。
func NewEngineLayoutRunner(engine *layout.Engine, mode layout.Mode, w remoteio.OutputWriter, quality int) *EngineLayoutRunner {
	return &EngineLayoutRunner{
		engine:  engine,
		mode:    mode,
		writer:  w,
		quality: quality,
	}
}

// Run は表紙と全ページを順に合成します。デコード不能や配置不能といった
// ページ局所の失敗は記録して次のページへ進むのだ。
func (lr *EngineLayoutRunner) Run(ctx context.Context, root string, s *domain.Story) (*LayoutReport, error) {
	report := &LayoutReport{Failed: make(map[string]string)}
	mem := &layout.StyleMemory{}

	for _, name := range s.ArtifactNames() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// クラッシュ後の再開で合成済みのページを作り直さないのだ
		if layoutFresh(root, name) {
			slog.Info("レイアウトは既存のためスキップするのだ", "name", name)
			report.Skipped = append(report.Skipped, name)
			continue
		}

		lines := lr.linesFor(s, name)
		if err := lr.composeOne(ctx, root, name, lines, mem); err != nil {
			slog.Error("ページのレイアウトに失敗したのだ", "name", name, "error", err)
			report.Failed[name] = err.Error()
			continue
		}
		report.Composed = append(report.Composed, name)
	}

	slog.Info("レイアウト工程が完了しました",
		"composed", len(report.Composed),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
		"mode", lr.mode.String(),
	)
	return report, nil
}

// layoutFresh は name のレイアウト済み画像が存在し、かつ元画像より
// 古くないかどうかを返します。ステージ検出器と同じ鮮度の契約なのだ。
func layoutFresh(root, name string) bool {
	dst, err := os.Stat(filepath.Join(root, domain.LayoutDirName, name))
	if err != nil || dst.IsDir() || dst.Size() == 0 {
		return false
	}
	src, err := os.Stat(filepath.Join(root, domain.ImagesDirName, name))
	if err != nil {
		return false
	}
	return !dst.ModTime().Before(src.ModTime())
}

// composeOne は 1 枚分のデコード、合成、エンコード、書き出しを行います。
func (lr *EngineLayoutRunner) composeOne(ctx context.Context, root, name string, lines []string, mem *layout.StyleMemory) error {
	src, err := layout.DecodeFile(filepath.Join(root, domain.ImagesDirName, name))
	if err != nil {
		return err
	}

	comp, err := lr.engine.ComposeBest(src, lines, lr.mode, mem)
	if err != nil {
		return err
	}

	data, err := layout.EncodeJPEG(comp.Image, lr.quality)
	if err != nil {
		return fmt.Errorf("JPEGエンコードに失敗しました: %w", err)
	}

	path := filepath.Join(root, domain.LayoutDirName, name)
	if err := lr.writer.Write(ctx, path, bytes.NewReader(data), "image/jpeg"); err != nil {
		return fmt.Errorf("レイアウト画像の書き込みに失敗しました: %w", err)
	}

	slog.Info("テキストを合成したのだ",
		"name", name,
		"position", comp.Style.Position,
		"contrast", fmt.Sprintf("%.1f", comp.Contrast),
	)
	return nil
}

// linesFor はアーティファクトに合成するテキスト行を返します。表紙はタイトル、
// 各ページはそのページの本文なのだ。
func (lr *EngineLayoutRunner) linesFor(s *domain.Story, name string) []string {
	if name == domain.CoverBaseName {
		return []string{s.Title}
	}
	for _, p := range s.Pages {
		if domain.PageImageName(p.Number) == name {
			return p.Lines
		}
	}
	return nil
}
