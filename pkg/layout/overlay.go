package layout

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// composeOverlay は BusyMap で最も静かなセルを選び、テキストを画像上に重ねます。
// テキストブロック高は画像高の MinHeightRatio を下回らず、コントラスト比は
// 必要ならパネルの不透明度を 1.0 まで引き上げてでも MinContrast を満たします。
func (e *Engine) composeOverlay(src image.Image, lines []string) (*Composition, error) {
	return e.composeOverlayAt(src, lines, 0)
}

// composeOverlayAt は静かな順の上位 skip 個のセルを飛ばして配置します。
// ComposeBest が配置違いの候補を作るための入り口です。
func (e *Engine) composeOverlayAt(src image.Image, lines []string, skip int) (*Composition, error) {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	ranked := NewBusyMap(src, e.opts.GridRows, e.opts.GridCols).Ranked()
	if skip > 0 && skip < len(ranked) {
		ranked = ranked[skip:]
	}
	floor := int(float64(bounds.Dy()) * e.opts.MinHeightRatio)

	// 初期サイズから下限まで段階的に縮めながら、静かなセル順に配置を試すのだ。
	var (
		placed  bool
		cell    Cell
		rect    image.Rectangle
		wrapped []string
		size    float64
	)
search:
	for _, size = range fontSizes(e.opts.FontSize, e.opts.MinFontSize) {
		face, err := e.face(size)
		if err != nil {
			return nil, fmt.Errorf("フォントフェイスの生成に失敗しました: %w", err)
		}
		for _, c := range ranked {
			innerW := c.Rect.Dx() - 2*e.opts.Padding
			if innerW <= 0 {
				continue
			}
			w := wrapLines(face, lines, innerW)
			blockW := maxLineWidth(face, w) + 2*e.opts.Padding
			blockH := len(w)*lineHeight(face) + 2*e.opts.Padding
			if blockH < floor {
				blockH = floor
			}
			if blockW <= c.Rect.Dx() && blockH <= c.Rect.Dy() {
				cell = c
				wrapped = w
				rect = image.Rect(c.Rect.Min.X, c.Rect.Min.Y, c.Rect.Min.X+blockW, c.Rect.Min.Y+blockH)
				placed = true
				face.Close()
				break search
			}
		}
		face.Close()
	}
	if !placed {
		// 可読性の下限を守れないなら、縮めて誤魔化さずに失敗させます。
		return nil, &domain.InsufficientSpaceError{
			ImageWidth:  bounds.Dx(),
			ImageHeight: bounds.Dy(),
			Lines:       len(lines),
		}
	}

	// 背景の平均輝度から文字色（白か黒か）を選びます。
	bgLum := meanLuminance(src, rect)
	darkText := ContrastRatio(0, bgLum) >= ContrastRatio(1, bgLum)
	textLum, panelLum := 1.0, 0.0
	textColor := color.Color(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	if darkText {
		textLum, panelLum = 0.0, 1.0
		textColor = color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	}

	// 賑やかなセルにはパネルを敷き、コントラスト不足なら不透明度を
	// 満たすまで引き上げます。α=1.0 では必ず満たせるのでハード保証なのだ。
	panel := cell.Score > e.opts.BusyThreshold
	alpha := e.opts.PanelOpacity
	contrast := ContrastRatio(textLum, bgLum)
	if contrast < e.opts.MinContrast {
		panel = true
		for alpha < 1.0 && ContrastRatio(textLum, blendLuminance(bgLum, panelLum, alpha)) < e.opts.MinContrast {
			alpha += 0.1
		}
		if alpha > 1.0 {
			alpha = 1.0
		}
	}
	if panel {
		contrast = ContrastRatio(textLum, blendLuminance(bgLum, panelLum, alpha))
		drawPanel(dst, rect, panelLum, alpha)
	}

	face, err := e.face(size)
	if err != nil {
		return nil, fmt.Errorf("フォントフェイスの生成に失敗しました: %w", err)
	}
	defer face.Close()
	drawText(dst, face, wrapped, rect, textColor, e.opts.Padding)

	obscured := float64(rect.Dx()*rect.Dy()) / float64(bounds.Dx()*bounds.Dy())
	return &Composition{
		Image: dst,
		Style: Style{
			Mode:     ModeOverlay,
			Position: fmt.Sprintf("cell%d", cell.Index),
			FontSize: size,
			Panel:    panel,
			DarkText: darkText,
		},
		Block:    rect,
		Contrast: contrast,
		Obscured: obscured,
	}, nil
}

// drawPanel は rect に不透明度 alpha のパネルを重ねます。
// panelLum が 0 なら黒、1 なら白のパネルです。
func drawPanel(dst *image.RGBA, rect image.Rectangle, panelLum, alpha float64) {
	a := uint8(alpha * 0xff)
	c := color.NRGBA{A: a}
	if panelLum >= 0.5 {
		c = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: a}
	}
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

// fontSizes は初期サイズから下限まで 4pt 刻みの候補列を返します。
// 下限そのものは必ず末尾に含まれます。
func fontSizes(start, min float64) []float64 {
	if start < min {
		start = min
	}
	var sizes []float64
	for s := start; s > min; s -= 4 {
		sizes = append(sizes, s)
	}
	return append(sizes, min)
}
