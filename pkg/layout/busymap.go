package layout

import (
	"image"
	"math"
	"sort"
)

// Cell は BusyMap を構成する 1 マス分の解析結果です。
type Cell struct {
	Index int
	Rect  image.Rectangle
	Score float64 // 高いほど「賑やか」で、テキストの可読性が悪い
}

// BusyMap は画像を固定グリッドに分割し、各セルの「賑やかさ」を
// 輝度分散とエッジ強度からスコア化したものです。
// OVERLAY モードのテキスト配置は、このマップの静かなセルから順に試します。
type BusyMap struct {
	Cells []Cell
	Rows  int
	Cols  int
}

// エッジ強度を分散と同じ土俵に乗せるための重みです。
const edgeWeight = 4.0

// NewBusyMap は img を rows×cols のグリッドに分割して解析します。
func NewBusyMap(img image.Image, rows, cols int) *BusyMap {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	bounds := img.Bounds()
	cellW := bounds.Dx() / cols
	cellH := bounds.Dy() / rows

	m := &BusyMap{Rows: rows, Cols: cols}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			rect := image.Rect(
				bounds.Min.X+c*cellW,
				bounds.Min.Y+r*cellH,
				bounds.Min.X+(c+1)*cellW,
				bounds.Min.Y+(r+1)*cellH,
			)
			m.Cells = append(m.Cells, Cell{
				Index: r*cols + c,
				Rect:  rect,
				Score: busyness(img, rect),
			})
		}
	}
	return m
}

// Ranked は静かなセルから賑やかなセルへ昇順に並べたコピーを返すのだ。
func (m *BusyMap) Ranked() []Cell {
	ranked := make([]Cell, len(m.Cells))
	copy(ranked, m.Cells)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})
	return ranked
}

// busyness はセル内の輝度分散と水平・垂直方向の平均勾配を合成したスコアです。
// 単色の空は 0 に近く、細かい模様や輪郭の多い領域ほど大きくなります。
func busyness(img image.Image, rect image.Rectangle) float64 {
	if rect.Empty() {
		return math.MaxFloat64
	}

	var sum, sqSum, edgeSum float64
	var count, edgeCount int
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			l := relativeLuminance(img.At(x, y))
			sum += l
			sqSum += l * l
			count++

			if x+1 < rect.Max.X {
				edgeSum += math.Abs(l - relativeLuminance(img.At(x+1, y)))
				edgeCount++
			}
			if y+1 < rect.Max.Y {
				edgeSum += math.Abs(l - relativeLuminance(img.At(x, y+1)))
				edgeCount++
			}
		}
	}
	if count == 0 {
		return math.MaxFloat64
	}

	mean := sum / float64(count)
	variance := sqSum/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	var meanEdge float64
	if edgeCount > 0 {
		meanEdge = edgeSum / float64(edgeCount)
	}
	return variance + edgeWeight*meanEdge
}
