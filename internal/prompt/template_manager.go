package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"
)

// テンプレート種別。各工程が使うプロンプトを名前で引くのだ。
const (
	KindStory    = "story"
	KindImage    = "image"
	KindValidate = "validate"
	KindImprove  = "improve"
)

//go:embed story.md
var StoryPrompt string

//go:embed image.md
var ImagePrompt string

//go:embed validate.md
var ValidatePrompt string

//go:embed improve.md
var ImprovePrompt string

// kindTemplates は種別とテンプレート文字列を紐づけるマップなのだ。
var kindTemplates = map[string]string{
	KindStory:    StoryPrompt,
	KindImage:    ImagePrompt,
	KindValidate: ValidatePrompt,
	KindImprove:  ImprovePrompt,
}

// TemplateData はテンプレートに流し込むパラメータ一式です。
// 種別によって使われるフィールドは異なります。
type TemplateData struct {
	Theme        string // 本のテーマ（ユーザー指定）
	TargetAge    string
	PageCount    int
	LinesPerPage int
	Style        string // 画風（watercolor など）
	StoryText    string // 確定済みストーリー全文
	PageText     string
	Scene        string
	Mood         string
	Characters   string // 登場キャラクターの外見説明
	PromptsJSON  string // 検証・改善に渡す画像プロンプト一式
	ReportJSON   string // 改善に渡す直前の検証レポート
}

// GetPromptByKind は、指定された種別に対応するテンプレート文字列を返すのだ。
func GetPromptByKind(kind string) (string, error) {
	content, ok := kindTemplates[kind]
	if !ok {
		supported := slices.Collect(maps.Keys(kindTemplates))
		slices.Sort(supported)

		return "", fmt.Errorf("サポートされていない種別: '%s'。サポートされている種別は [%s] です",
			kind, strings.Join(supported, ", "))
	}

	if content == "" {
		return "", fmt.Errorf("種別 '%s' に対応するプロンプトテンプレートが空なのだ。embed設定を確認してほしいのだ", kind)
	}

	return content, nil
}

// Render は種別のテンプレートに data を適用したプロンプト文字列を返します。
func Render(kind string, data TemplateData) (string, error) {
	content, err := GetPromptByKind(kind)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(kind).Parse(content)
	if err != nil {
		return "", fmt.Errorf("テンプレート '%s' の解析に失敗しました: %w", kind, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("テンプレート '%s' の展開に失敗しました: %w", kind, err)
	}
	return buf.String(), nil
}
