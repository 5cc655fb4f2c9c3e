package layout

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// makeUniform は単色の RGBA 画像を作ります。
func makeUniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// makeHalfNoisy は左半分が単色、右半分が市松模様の画像を作ります。
func makeHalfNoisy(w, h int) *image.RGBA {
	img := makeUniform(w, h, color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff})
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
			}
		}
	}
	return img
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	if err != nil {
		t.Fatalf("エンジンの初期化に失敗したのだ: %v", err)
	}
	return e
}

func TestFont(t *testing.T) {
	t.Run("システムの日本語フォントで本文の全ルーンが描けるのだ", func(t *testing.T) {
		path := findSystemFont()
		if path == "" {
			t.Skip("日本語フォントが見つからない環境なのだ")
		}

		opts := DefaultOptions()
		opts.FontPath = path
		e := newTestEngine(t, opts)
		face, err := e.face(24)
		if err != nil {
			t.Fatalf("フォントフェイスの生成に失敗したのだ: %v", err)
		}
		defer face.Close()

		for _, r := range "きょうははじめてのおつかいなのだ。" {
			if _, ok := face.GlyphAdvance(r); !ok {
				t.Errorf("ルーン %q のグリフが無いのだ", r)
			}
		}
	})

	t.Run("存在しないフォントパスはエラーなのだ", func(t *testing.T) {
		opts := DefaultOptions()
		opts.FontPath = "/no/such/font.ttf"
		if _, err := New(opts); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})

	t.Run("フォント未指定でもエンジンは初期化できるのだ", func(t *testing.T) {
		if _, err := New(DefaultOptions()); err != nil {
			t.Errorf("フォールバックで初期化できるはずなのだ: %v", err)
		}
	})
}

func TestBusyMap(t *testing.T) {
	t.Run("静かなセルが賑やかなセルより先に並ぶのだ", func(t *testing.T) {
		img := makeHalfNoisy(400, 400)
		ranked := NewBusyMap(img, 4, 4).Ranked()

		if len(ranked) != 16 {
			t.Fatalf("4x4で16セルのはずなのだ: %d", len(ranked))
		}
		// 最も静かなセルは単色の左半分にあるはずなのだ
		quietest := ranked[0]
		if quietest.Rect.Min.X >= 200 {
			t.Errorf("最も静かなセルは左半分のはずなのだ: %+v", quietest.Rect)
		}
		// 最も賑やかなセルは市松模様の右半分にあるはずなのだ
		busiest := ranked[len(ranked)-1]
		if busiest.Rect.Min.X < 200 {
			t.Errorf("最も賑やかなセルは右半分のはずなのだ: %+v", busiest.Rect)
		}
		if quietest.Score >= busiest.Score {
			t.Errorf("スコアの順序が逆なのだ: %f >= %f", quietest.Score, busiest.Score)
		}
	})
}

func TestContrastRatio(t *testing.T) {
	t.Run("白と黒のコントラスト比は21なのだ", func(t *testing.T) {
		got := ContrastRatio(1.0, 0.0)
		if got < 20.9 || got > 21.1 {
			t.Errorf("期待 21.0、実際 %f なのだ", got)
		}
	})

	t.Run("引数の順序に依存しないのだ", func(t *testing.T) {
		if ContrastRatio(0.2, 0.8) != ContrastRatio(0.8, 0.2) {
			t.Error("順序を入れ替えると値が変わってしまったのだ")
		}
	})

	t.Run("同じ輝度同士は1.0なのだ", func(t *testing.T) {
		if got := ContrastRatio(0.5, 0.5); got != 1.0 {
			t.Errorf("期待 1.0、実際 %f なのだ", got)
		}
	})
}

func TestComposeAdjacent(t *testing.T) {
	t.Run("元画像のピクセルには一切触れないのだ", func(t *testing.T) {
		e := newTestEngine(t, DefaultOptions())
		src := makeHalfNoisy(400, 300)

		comp, err := e.Compose(src, []string{"hello world"}, ModeAdjacent)
		if err != nil {
			t.Fatalf("合成に失敗したのだ: %v", err)
		}

		// 拡張された右側パネルの分だけ幅が増えているのだ
		wantW := 400 + int(400*e.opts.TextWidthRatio)
		if comp.Image.Bounds().Dx() != wantW {
			t.Errorf("キャンバス幅が違うのだ: 期待 %d、実際 %d", wantW, comp.Image.Bounds().Dx())
		}
		if comp.Image.Bounds().Dy() != 300 {
			t.Errorf("キャンバス高は変わらないはずなのだ: %d", comp.Image.Bounds().Dy())
		}

		// 元画像の領域がビット単位で一致することを確かめるのだ
		for y := 0; y < 300; y++ {
			for x := 0; x < 400; x++ {
				if comp.Image.RGBAAt(x, y) != src.RGBAAt(x, y) {
					t.Fatalf("(%d,%d) のピクセルが書き換わっているのだ", x, y)
				}
			}
		}

		if comp.Obscured != 0 {
			t.Errorf("ADJACENT の被覆率は常に0なのだ: %f", comp.Obscured)
		}
		if comp.Contrast < e.opts.MinContrast {
			t.Errorf("パネルと文字のコントラストが下限未満なのだ: %f", comp.Contrast)
		}
	})

	t.Run("パネルに収まらないテキストはエラーなのだ", func(t *testing.T) {
		e := newTestEngine(t, DefaultOptions())
		src := makeUniform(80, 60, color.RGBA{A: 0xff})

		long := make([]string, 50)
		for i := range long {
			long[i] = "very long line of text"
		}
		_, err := e.Compose(src, long, ModeAdjacent)
		if err == nil {
			t.Fatal("エラーになるべきなのだ")
		}
		var insufficient *domain.InsufficientSpaceError
		if !errors.As(err, &insufficient) {
			t.Errorf("InsufficientSpaceError であるべきなのだ: %T", err)
		}
	})
}

func TestComposeOverlay(t *testing.T) {
	t.Run("静かな領域に下限以上の高さで配置するのだ", func(t *testing.T) {
		e := newTestEngine(t, DefaultOptions())
		src := makeUniform(1200, 900, color.RGBA{R: 0x18, G: 0x18, B: 0x30, A: 0xff})

		comp, err := e.Compose(src, []string{"hello"}, ModeOverlay)
		if err != nil {
			t.Fatalf("合成に失敗したのだ: %v", err)
		}
		if comp.Image.Bounds() != src.Bounds() {
			t.Errorf("OVERLAY ではキャンバスサイズは変わらないのだ: %v", comp.Image.Bounds())
		}
		if comp.Contrast < e.opts.MinContrast {
			t.Errorf("コントラスト保証が破れているのだ: %f", comp.Contrast)
		}
		if comp.Obscured <= 0 {
			t.Errorf("OVERLAY は元画像を少し覆うはずなのだ: %f", comp.Obscured)
		}
		// 可読性の下限: テキストブロック高は画像高の10%を下回らないのだ
		floor := int(float64(src.Bounds().Dy()) * e.opts.MinHeightRatio)
		if comp.Block.Dy() < floor {
			t.Errorf("テキストブロック高が下限未満なのだ: %d < %d", comp.Block.Dy(), floor)
		}
		// 暗い背景なので明るい文字が選ばれるはずなのだ
		if comp.Style.DarkText {
			t.Error("暗い背景では明るい文字を選ぶはずなのだ")
		}
	})

	t.Run("下限を上げるとパネルを強制してでも満たすのだ", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MinContrast = 7.0
		e := newTestEngine(t, opts)
		// どちらの文字色でも素のコントラストが7に届かない中間グレーなのだ
		src := makeUniform(1200, 900, color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff})

		comp, err := e.Compose(src, []string{"hello"}, ModeOverlay)
		if err != nil {
			t.Fatalf("合成に失敗したのだ: %v", err)
		}
		if !comp.Style.Panel {
			t.Error("パネルが強制されるはずなのだ")
		}
		if comp.Contrast < opts.MinContrast {
			t.Errorf("強制パネル後もコントラストが不足しているのだ: %f", comp.Contrast)
		}
	})

	t.Run("最小フォントでも置けない画像はエラーなのだ", func(t *testing.T) {
		e := newTestEngine(t, DefaultOptions())
		src := makeUniform(100, 100, color.RGBA{A: 0xff})

		_, err := e.Compose(src, []string{"hello world"}, ModeOverlay)
		if err == nil {
			t.Fatal("エラーになるべきなのだ")
		}
		var insufficient *domain.InsufficientSpaceError
		if !errors.As(err, &insufficient) {
			t.Errorf("InsufficientSpaceError であるべきなのだ: %T", err)
		}
	})
}

func TestComposeBest(t *testing.T) {
	t.Run("採用したスタイルが次ページの候補採点に効くのだ", func(t *testing.T) {
		e := newTestEngine(t, DefaultOptions())
		src := makeUniform(400, 300, color.RGBA{R: 0x40, G: 0x80, B: 0x40, A: 0xff})
		mem := &StyleMemory{}

		first, err := e.ComposeBest(src, []string{"page one"}, ModeAdjacent, mem)
		if err != nil {
			t.Fatalf("1ページ目の合成に失敗したのだ: %v", err)
		}
		second, err := e.ComposeBest(src, []string{"page two"}, ModeAdjacent, mem)
		if err != nil {
			t.Fatalf("2ページ目の合成に失敗したのだ: %v", err)
		}

		if len(mem.styles) != 2 {
			t.Fatalf("採用スタイルが2件記録されているはずなのだ: %d", len(mem.styles))
		}
		if first.Style.Position != second.Style.Position {
			t.Errorf("一貫性採点により同じ配置が選ばれるはずなのだ: %s / %s",
				first.Style.Position, second.Style.Position)
		}
	})
}

func TestDecodeFile(t *testing.T) {
	t.Run("壊れたファイルは ImageDecodeError なのだ", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.jpg")
		if err := os.WriteFile(path, []byte("this is not a jpeg"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := DecodeFile(path)
		if err == nil {
			t.Fatal("エラーになるべきなのだ")
		}
		var decodeErr *domain.ImageDecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("ImageDecodeError であるべきなのだ: %T", err)
		}
	})

	t.Run("存在しないファイルも ImageDecodeError なのだ", func(t *testing.T) {
		_, err := DecodeFile(filepath.Join(t.TempDir(), "missing.jpg"))
		var decodeErr *domain.ImageDecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("ImageDecodeError であるべきなのだ: %T", err)
		}
	})
}
