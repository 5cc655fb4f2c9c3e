package layout

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// ADJACENT モードのテキストパネル位置です。
const (
	positionRight  = "right"
	positionBottom = "bottom"
)

// 既定のパネル色。絵本の紙面に馴染む温かみのあるオフホワイトです。
var defaultPanel = color.NRGBA{R: 0xfb, G: 0xf7, B: 0xee, A: 0xff}

// composeAdjacent は既定のパネル色で ADJACENT 合成を行います。
func (e *Engine) composeAdjacent(src image.Image, lines []string, pos string) (*Composition, error) {
	return e.composeAdjacentStyled(src, lines, pos, defaultPanel)
}

// composeAdjacentStyled は元画像のピクセルに一切触れず、キャンバスを
// TextWidthRatio 分だけ拡張してテキスト専用パネルを描きます。
// テキストが画像に重ならないため、コントラストのリスクはそもそも生じないのだ。
func (e *Engine) composeAdjacentStyled(src image.Image, lines []string, pos string, panel color.NRGBA) (*Composition, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var canvas, panelRect image.Rectangle
	switch pos {
	case positionBottom:
		ext := int(float64(h) * e.opts.TextWidthRatio)
		canvas = image.Rect(0, 0, w, h+ext)
		panelRect = image.Rect(0, h, w, h+ext)
	default:
		ext := int(float64(w) * e.opts.TextWidthRatio)
		canvas = image.Rect(0, 0, w+ext, h)
		panelRect = image.Rect(w, 0, w+ext, h)
	}

	dst := image.NewRGBA(canvas)
	draw.Draw(dst, image.Rect(0, 0, w, h), src, bounds.Min, draw.Src)
	draw.Draw(dst, panelRect, image.NewUniform(panel), image.Point{}, draw.Src)

	// パネル内に収まるまでフォントを段階的に縮めます。下限でも収まらなければ
	// 文字を潰して描くのではなくエラーで失敗させるのだ。
	innerW := panelRect.Dx() - 2*e.opts.Padding
	innerH := panelRect.Dy() - 2*e.opts.Padding
	var (
		placed  bool
		wrapped []string
		size    float64
	)
	for _, size = range fontSizes(e.opts.FontSize, e.opts.MinFontSize) {
		face, err := e.face(size)
		if err != nil {
			return nil, fmt.Errorf("フォントフェイスの生成に失敗しました: %w", err)
		}
		candidate := wrapLines(face, lines, innerW)
		fits := len(candidate)*lineHeight(face) <= innerH && maxLineWidth(face, candidate) <= innerW
		face.Close()
		if fits {
			wrapped = candidate
			placed = true
			break
		}
	}
	if !placed {
		return nil, &domain.InsufficientSpaceError{
			ImageWidth:  w,
			ImageHeight: h,
			Lines:       len(lines),
		}
	}

	textColor := color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	face, err := e.face(size)
	if err != nil {
		return nil, fmt.Errorf("フォントフェイスの生成に失敗しました: %w", err)
	}
	defer face.Close()
	drawText(dst, face, wrapped, panelRect, textColor, e.opts.Padding)

	return &Composition{
		Image: dst,
		Style: Style{
			Mode:     ModeAdjacent,
			Position: pos,
			FontSize: size,
			Panel:    true,
			DarkText: true,
		},
		Block:    panelRect,
		Contrast: ContrastRatio(relativeLuminance(textColor), relativeLuminance(panel)),
		Obscured: 0,
	}, nil
}
