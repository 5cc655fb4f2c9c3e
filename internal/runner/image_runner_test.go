package runner

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shouni/go-ehon-kit/internal/config"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/layout"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"golang.org/x/time/rate"
)

// fakeArtifactWriter はローカルディスクに書き込みつつ、書いた名前を記録するのだ。
type fakeArtifactWriter struct {
	mu      sync.Mutex
	written []string
}

func (w *fakeArtifactWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w.mu.Lock()
	w.written = append(w.written, filepath.Base(path))
	w.mu.Unlock()
	return os.WriteFile(path, data, 0o644)
}

// fakeImageGenerator は生成呼び出しの回数だけを数えるスタブなのだ。
type fakeImageGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeImageGenerator) GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return &imagedom.ImageResponse{Data: []byte("generated"), MimeType: "image/jpeg"}, nil
}

func TestGeminiImageRunner_GenerateAll(t *testing.T) {
	t.Run("完成済みの画像は再生成しないのだ", func(t *testing.T) {
		root := t.TempDir()
		imagesDir := filepath.Join(root, domain.ImagesDirName)
		if err := os.MkdirAll(imagesDir, 0o755); err != nil {
			t.Fatal(err)
		}
		// クラッシュ前に 3 枚中 2 枚が完成していた状況なのだ
		for _, name := range []string{"cover.jpg", "page1.jpg"} {
			if err := os.WriteFile(filepath.Join(imagesDir, name), []byte("finished"), 0o644); err != nil {
				t.Fatal(err)
			}
		}

		gen := &fakeImageGenerator{}
		writer := &fakeArtifactWriter{}
		ir := NewGeminiImageRunner(&config.Config{}, nil, gen, nil, writer, rate.NewLimiter(rate.Inf, 1))

		items := []domain.ImagePrompt{
			{ImageName: "cover.jpg", Prompt: "a cover"},
			{ImageName: "page1.jpg", Prompt: "a page"},
			{ImageName: "page2.jpg", Prompt: "another page"},
		}
		if err := ir.generateAll(context.Background(), root, items); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}

		if gen.calls != 1 {
			t.Errorf("欠けている1枚だけを生成するはずなのだ: %d回呼ばれた", gen.calls)
		}
		if len(writer.written) != 1 || writer.written[0] != "page2.jpg" {
			t.Errorf("page2.jpg だけが書き出されるはずなのだ: %v", writer.written)
		}

		// 完成済みの中身が書き換わっていないことも確かめるのだ
		for _, name := range []string{"cover.jpg", "page1.jpg"} {
			data, err := os.ReadFile(filepath.Join(imagesDir, name))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "finished" {
				t.Errorf("%s が作り直されてしまったのだ", name)
			}
		}
	})

	t.Run("空のファイルは完成扱いにしないのだ", func(t *testing.T) {
		root := t.TempDir()
		imagesDir := filepath.Join(root, domain.ImagesDirName)
		if err := os.MkdirAll(imagesDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(imagesDir, "cover.jpg"), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		gen := &fakeImageGenerator{}
		writer := &fakeArtifactWriter{}
		ir := NewGeminiImageRunner(&config.Config{}, nil, gen, nil, writer, rate.NewLimiter(rate.Inf, 1))

		items := []domain.ImagePrompt{{ImageName: "cover.jpg", Prompt: "a cover"}}
		if err := ir.generateAll(context.Background(), root, items); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if gen.calls != 1 {
			t.Errorf("空のファイルは作り直すはずなのだ: %d回呼ばれた", gen.calls)
		}
	})
}

func TestEngineLayoutRunner_SkipFresh(t *testing.T) {
	t.Run("合成済みのページは飛ばして残りだけ合成するのだ", func(t *testing.T) {
		root := t.TempDir()
		imagesDir := filepath.Join(root, domain.ImagesDirName)
		layoutDir := filepath.Join(root, domain.LayoutDirName)
		for _, dir := range []string{imagesDir, layoutDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatal(err)
			}
		}

		src := image.NewRGBA(image.Rect(0, 0, 400, 300))
		for y := 0; y < 300; y++ {
			for x := 0; x < 400; x++ {
				src.SetRGBA(x, y, color.RGBA{R: 0x40, G: 0x80, B: 0x40, A: 0xff})
			}
		}
		jpegData, err := layout.EncodeJPEG(src, 90)
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"cover.jpg", "page1.jpg"} {
			if err := os.WriteFile(filepath.Join(imagesDir, name), jpegData, 0o644); err != nil {
				t.Fatal(err)
			}
		}
		// cover は元画像より後に書くので「新鮮」なレイアウト済み扱いになるのだ
		if err := os.WriteFile(filepath.Join(layoutDir, "cover.jpg"), jpegData, 0o644); err != nil {
			t.Fatal(err)
		}

		engine, err := layout.New(layout.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		writer := &fakeArtifactWriter{}
		lr := NewEngineLayoutRunner(engine, layout.ModeAdjacent, writer, 90)

		s := &domain.Story{
			Title: "test book",
			Pages: []domain.Page{{Number: 1, Lines: []string{"hello world"}}},
		}
		report, err := lr.Run(context.Background(), root, s)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}

		if len(report.Skipped) != 1 || report.Skipped[0] != "cover.jpg" {
			t.Errorf("cover.jpg だけがスキップされるはずなのだ: %v", report.Skipped)
		}
		if len(report.Composed) != 1 || report.Composed[0] != "page1.jpg" {
			t.Errorf("page1.jpg だけが合成されるはずなのだ: %v", report.Composed)
		}
		if len(writer.written) != 1 || writer.written[0] != "page1.jpg" {
			t.Errorf("書き出しは page1.jpg だけのはずなのだ: %v", writer.written)
		}

		// スキップされた cover の中身はビット単位で無傷のはずなのだ
		after, err := os.ReadFile(filepath.Join(layoutDir, "cover.jpg"))
		if err != nil {
			t.Fatal(err)
		}
		if string(after) != string(jpegData) {
			t.Error("スキップしたはずの cover.jpg が書き換わってしまったのだ")
		}
	})
}
