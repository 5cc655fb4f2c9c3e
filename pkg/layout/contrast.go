package layout

import (
	"image"
	"image/color"
	"math"
)

// relativeLuminance は WCAG の定義に従う相対輝度（0.0〜1.0）を返します。
// sRGB の各成分を線形化してから 0.2126/0.7152/0.0722 で重み付けするのだ。
func relativeLuminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.2126*linearize(float64(r)/0xffff) +
		0.7152*linearize(float64(g)/0xffff) +
		0.0722*linearize(float64(b)/0xffff)
}

func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio は 2 つの相対輝度からコントラスト比（1.0〜21.0）を返します。
// 引数の順序は問いません。
func ContrastRatio(l1, l2 float64) float64 {
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// meanLuminance は矩形領域内の平均相対輝度を返します。
// テキストの文字色（白か黒か）の選択に使います。
func meanLuminance(img image.Image, rect image.Rectangle) float64 {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return 0
	}
	var sum float64
	var count int
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sum += relativeLuminance(img.At(x, y))
			count++
		}
	}
	return sum / float64(count)
}

// blendLuminance は輝度 bg の背景に、輝度 panel のパネルを不透明度 alpha で
// 重ねたときの実効輝度を返します。強制パネルのコントラスト計算に使うのだ。
func blendLuminance(bg, panel, alpha float64) float64 {
	return (1-alpha)*bg + alpha*panel
}
