package layout

import (
	"image"
	"image/color"
)

// consistencyWeight は一冊を通したスタイル一貫性の重みです。
// コントラストと被覆率という客観指標よりは弱めに効かせます。
const consistencyWeight = 0.5

// StyleMemory は同じ本の中で過去のページに採用したスタイルを記録し、
// ページ間でスタイルが揃うよう候補の採点に寄与します。
// 一冊の処理は単一ゴルーチンで進むため、排他制御は持ちません。
type StyleMemory struct {
	styles []Style
}

// Remember は採用したスタイルを記録します。
func (m *StyleMemory) Remember(s Style) {
	m.styles = append(m.styles, s)
}

// consistency は候補スタイルと直前に採用したスタイルの一致度（0.0〜1.0）です。
// まだ何も記録がなければ中立の 1.0 を返すのだ。
func (m *StyleMemory) consistency(s Style) float64 {
	if len(m.styles) == 0 {
		return 1.0
	}
	prev := m.styles[len(m.styles)-1]
	var score float64
	if s.Position == prev.Position {
		score++
	}
	if s.FontSize == prev.FontSize {
		score++
	}
	if s.Panel == prev.Panel {
		score++
	}
	if s.DarkText == prev.DarkText {
		score++
	}
	return score / 4
}

// ComposeBest は同一ページに対して複数のスタイル候補を生成し、
// (a) 達成コントラスト比、(b) 元画像の被覆率（ADJACENT は常に 0）、
// (c) 既出ページとのスタイル一貫性、の合成スコアで最良の 1 枚を選びます。
// 採用したスタイルは mem に記録され、次ページ以降の採点に反映されるのだ。
func (e *Engine) ComposeBest(src image.Image, lines []string, mode Mode, mem *StyleMemory) (*Composition, error) {
	var (
		candidates []*Composition
		firstErr   error
	)
	collect := func(c *Composition, err error) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		candidates = append(candidates, c)
	}

	switch mode {
	case ModeOverlay:
		for skip := 0; skip < 3; skip++ {
			collect(e.composeOverlayAt(src, lines, skip))
		}
	default:
		collect(e.composeAdjacentStyled(src, lines, positionRight, defaultPanel))
		collect(e.composeAdjacentStyled(src, lines, positionBottom, defaultPanel))
		collect(e.composeAdjacentStyled(src, lines, positionRight, color.NRGBA{R: 0xee, G: 0xf3, B: 0xfb, A: 0xff}))
	}

	if len(candidates) == 0 {
		return nil, firstErr
	}

	best := candidates[0]
	bestScore := e.scoreCandidate(best, mem)
	for _, c := range candidates[1:] {
		if s := e.scoreCandidate(c, mem); s > bestScore {
			best, bestScore = c, s
		}
	}
	if mem != nil {
		mem.Remember(best.Style)
	}
	return best, nil
}

func (e *Engine) scoreCandidate(c *Composition, mem *StyleMemory) float64 {
	contrast := c.Contrast
	if contrast > 21 {
		contrast = 21
	}
	score := contrast/21 + (1 - c.Obscured)
	if mem != nil {
		score += consistencyWeight * mem.consistency(c.Style)
	}
	return score
}
