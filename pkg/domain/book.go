package domain

import (
	"fmt"
	"strings"
)

// Story は AI モデルから生成される絵本一冊分の台本全体の構造です。
// story_details.txt と 1:1 で対応し、後続の画像生成・レイアウト工程の契約になります。
type Story struct {
	Title      string      `json:"title"`
	Meta       Metadata    `json:"metadata"`
	Characters []Character `json:"characters"`
	Pages      []Page      `json:"pages"`
}

// Metadata は物語全体の補足情報（要約、テーマ、対象年齢、教育的要素）を保持します。
type Metadata struct {
	Summary     string   `json:"summary"`
	Themes      []string `json:"themes"`
	TargetAge   string   `json:"target_age"`
	Educational []string `json:"educational_elements"`
}

// Character は絵本に登場するキャラクターの定義を保持します。
// Appearance は生成プロンプトに注入する外見上の DNA なのだ。
type Character struct {
	Name          string `json:"name"`
	Appearance    string `json:"appearance"`
	Personality   string `json:"personality"`
	Role          string `json:"role"`
	Expressions   string `json:"expressions"`
	Relationships string `json:"relationships"`
}

// Page は絵本の1ページ分の本文（行の列）、情景描写、登場キャラクターを保持します。
// Number は 1 始まりで、0 は表紙（cover）として予約されています。
type Page struct {
	Number     int      `json:"page"`
	Lines      []string `json:"lines"`
	Scene      string   `json:"scene"`
	Mood       string   `json:"mood"`
	Characters []string `json:"characters"`
}

// ImagePrompt は画像生成コラボレーターに渡す 1 枚分の指示です。
// ImageName は "cover.jpg" や "page3.jpg" のようなアーティファクト名と一致させます。
type ImagePrompt struct {
	ImageName string `json:"image_name"`
	Prompt    string `json:"prompt"`
}

// PageCount は表紙を除いた本文ページ数を返すのだ。
func (s *Story) PageCount() int {
	return len(s.Pages)
}

// Text はページ本文を改行で結合して返すのだ。
func (p Page) Text() string {
	return strings.Join(p.Lines, "\n")
}

// FindCharacter は名前からキャラクター定義を探します。大文字小文字は無視します。
func (s *Story) FindCharacter(name string) *Character {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i := range s.Characters {
		if strings.ToLower(s.Characters[i].Name) == lower {
			return &s.Characters[i]
		}
	}
	return nil
}

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Role)
}
