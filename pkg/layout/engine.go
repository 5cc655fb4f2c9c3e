// Package layout は絵本のページ画像にテキストを合成するレイアウトエンジンです。
// 既定の ADJACENT モードはキャンバスを拡張して元画像に一切手を加えず、
// OVERLAY モードは BusyMap で静かな領域を選び、最低コントラスト比を
// ハード保証したうえで画像上にテキストを重ねます。
package layout

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Mode はテキストの合成方式です。
type Mode int

const (
	// ModeAdjacent は元画像の隣に専用パネルを拡張して描く既定モードです。
	ModeAdjacent Mode = iota
	// ModeOverlay は元画像の静かな領域にテキストを重ねるモードです。
	ModeOverlay
)

func (m Mode) String() string {
	switch m {
	case ModeAdjacent:
		return "ADJACENT"
	case ModeOverlay:
		return "OVERLAY"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode は CLI フラグの文字列をモードに変換します。未知なら ADJACENT です。
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "overlay") {
		return ModeOverlay
	}
	return ModeAdjacent
}

// Options はレイアウトエンジンの調整パラメータです。
type Options struct {
	GridRows       int     // BusyMap の行数
	GridCols       int     // BusyMap の列数
	MinContrast    float64 // テキストと背景のコントラスト比の下限（ハード保証）
	MinHeightRatio float64 // テキストブロック高の下限（画像高に対する比率）
	TextWidthRatio float64 // ADJACENT モードでのキャンバス拡張比率
	Padding        int     // テキストブロック内側の余白（ピクセル）
	FontSize       float64 // 初期フォントサイズ（ポイント）
	MinFontSize    float64 // 縮小の下限。これ未満には決して縮めない
	PanelOpacity   float64 // 強制パネルの初期不透明度
	BusyThreshold  float64 // これを超えるセルにはパネルを敷く
	JPEGQuality    int
	FontPath       string // 本文描画に使う TTF/TTC のパス。空ならシステムの日本語フォントを探す
}

// DefaultOptions は本番既定値を返します。
func DefaultOptions() Options {
	return Options{
		GridRows:       4,
		GridCols:       4,
		MinContrast:    4.5,
		MinHeightRatio: 0.10,
		TextWidthRatio: 0.35,
		Padding:        24,
		FontSize:       60,
		MinFontSize:    24,
		PanelOpacity:   0.6,
		BusyThreshold:  0.02,
		JPEGQuality:    90,
	}
}

// Style は 1 回の合成で選ばれたスタイルパラメータの記録です。
// StyleMemory が一冊を通したスタイルの一貫性スコアに使います。
type Style struct {
	Mode     Mode
	Position string  // ADJACENT: "right"/"bottom"、OVERLAY: セル番号ラベル
	FontSize float64
	Panel    bool // 背景パネルを敷いたか
	DarkText bool // 暗色テキスト（明るい背景）か
}

// Composition は合成結果と、その品質指標です。
type Composition struct {
	Image    *image.RGBA
	Style    Style
	Block    image.Rectangle // テキストブロック（OVERLAY）またはテキストパネル（ADJACENT）の矩形
	Contrast float64         // 実際に達成したコントラスト比
	Obscured float64         // 元画像のうちテキストに覆われた面積比（ADJACENT は常に 0）
}

// Engine はフォントを 1 度だけ解析して保持する合成エンジンです。
// 並行呼び出しに対して安全です（描画ごとに新しい face を作ります）。
type Engine struct {
	opts Options
	ttf  *opentype.Font
}

// New はエンジンを初期化します。本文は日本語が既定なので、FontPath 未指定なら
// 日本語グリフを持つシステムフォントを探し、どうしても見つからない場合に限り
// 同梱の Go Regular にフォールバックするのだ。
func New(opts Options) (*Engine, error) {
	ttf, err := loadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}
	return &Engine{opts: opts, ttf: ttf}, nil
}

// defaultFontPaths は日本語グリフを持つフォントの代表的な置き場所です。
var defaultFontPaths = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJKjp-Regular.otf",
	"/usr/share/fonts/opentype/ipaexfont-gothic/ipaexg.ttf",
	"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

// findSystemFont は defaultFontPaths の中で実在する最初のパスを返します。
func findSystemFont() string {
	for _, p := range defaultFontPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// loadFont は path のフォントを読み込みます。path が空なら findSystemFont で
// 探し、それでも見つからなければ同梱の Go Regular を返すのだ。
func loadFont(path string) (*opentype.Font, error) {
	if path == "" {
		path = findSystemFont()
	}
	if path == "" {
		return opentype.Parse(goregular.TTF)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("フォント '%s' の読み込みに失敗しました: %w", path, err)
	}
	return parseFont(data, path)
}

// parseFont は単体フォントと TTC コレクションの両方を受け付けます。
// コレクションの場合は先頭のフォントを使うのだ。
func parseFont(data []byte, path string) (*opentype.Font, error) {
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		col, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("フォントコレクション '%s' の解析に失敗しました: %w", path, err)
		}
		ttf, err := col.Font(0)
		if err != nil {
			return nil, fmt.Errorf("フォントコレクション '%s' から取り出せませんでした: %w", path, err)
		}
		return ttf, nil
	}
	ttf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("フォント '%s' の解析に失敗しました: %w", path, err)
	}
	return ttf, nil
}

// Compose は mode に従ってテキストを合成します。
func (e *Engine) Compose(src image.Image, lines []string, mode Mode) (*Composition, error) {
	switch mode {
	case ModeOverlay:
		return e.composeOverlay(src, lines)
	default:
		return e.composeAdjacent(src, lines, positionRight)
	}
}

func (e *Engine) face(size float64) (font.Face, error) {
	return opentype.NewFace(e.ttf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// wrapLines は各行を maxWidth に収まるように折り返します。
// 空白区切りの単語単位で折り、単語 1 つが収まらない場合はルーン単位で折るのだ。
func wrapLines(face font.Face, lines []string, maxWidth int) []string {
	limit := fixed.I(maxWidth)
	var out []string
	for _, line := range lines {
		if font.MeasureString(face, line) <= limit {
			out = append(out, line)
			continue
		}
		var current string
		for _, word := range strings.Fields(line) {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if font.MeasureString(face, candidate) <= limit {
				current = candidate
				continue
			}
			if current != "" {
				out = append(out, current)
			}
			current = word
			for font.MeasureString(face, current) > limit && len([]rune(current)) > 1 {
				runes := []rune(current)
				cut := len(runes)
				for cut > 1 && font.MeasureString(face, string(runes[:cut])) > limit {
					cut--
				}
				out = append(out, string(runes[:cut]))
				current = string(runes[cut:])
			}
		}
		if current != "" {
			out = append(out, current)
		}
	}
	return out
}

// maxLineWidth は折り返し後の最長行の幅（ピクセル）を返します。
func maxLineWidth(face font.Face, lines []string) int {
	var max fixed.Int26_6
	for _, line := range lines {
		if w := font.MeasureString(face, line); w > max {
			max = w
		}
	}
	return max.Ceil()
}

// lineHeight はフォントメトリクスに基づく行送り（ピクセル）を返します。
func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// drawText は rect の内側にテキストを左揃えで描画します。
func drawText(dst *image.RGBA, face font.Face, lines []string, rect image.Rectangle, col color.Color, padding int) {
	lh := lineHeight(face)
	ascent := face.Metrics().Ascent.Ceil()
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	y := rect.Min.Y + padding + ascent
	for _, line := range lines {
		drawer.Dot = fixed.P(rect.Min.X+padding, y)
		drawer.DrawString(line)
		y += lh
	}
}
