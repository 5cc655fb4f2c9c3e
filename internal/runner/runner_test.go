package runner

import (
	"strings"
	"testing"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

func TestStripCodeFence(t *testing.T) {
	t.Run("jsonフェンスを剥がすのだ", func(t *testing.T) {
		raw := "```json\n{\"a\": 1}\n```"
		if got := stripCodeFence(raw); got != `{"a": 1}` {
			t.Errorf("期待と違うのだ: %q", got)
		}
	})

	t.Run("言語指定なしのフェンスも剥がすのだ", func(t *testing.T) {
		raw := "```\nタイトル\n本文\n```"
		if got := stripCodeFence(raw); got != "タイトル\n本文" {
			t.Errorf("期待と違うのだ: %q", got)
		}
	})

	t.Run("フェンスが無ければ前後の空白だけ落とすのだ", func(t *testing.T) {
		if got := stripCodeFence("  plain text  \n"); got != "plain text" {
			t.Errorf("期待と違うのだ: %q", got)
		}
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("前置きの文章を無視して配列を切り出すのだ", func(t *testing.T) {
		raw := "はい、プロンプトを作成しました。\n[{\"image_name\": \"cover.jpg\"}]\n以上です。"
		got := extractJSON(raw, "[", "]")
		if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "]") {
			t.Errorf("配列だけが切り出されるはずなのだ: %q", got)
		}
	})

	t.Run("フェンス付きのオブジェクトも切り出せるのだ", func(t *testing.T) {
		raw := "```json\n{\"overall_score\": 8.0}\n```"
		if got := extractJSON(raw, "{", "}"); got != `{"overall_score": 8.0}` {
			t.Errorf("期待と違うのだ: %q", got)
		}
	})
}

func TestParseImagePrompts(t *testing.T) {
	t.Run("前置き付きの応答からプロンプト一覧を得るのだ", func(t *testing.T) {
		raw := "承知しました。\n```json\n[\n  {\"image_name\": \"cover.jpg\", \"prompt\": \"a cat\"},\n  {\"image_name\": \"page1.jpg\", \"prompt\": \"a dog\"}\n]\n```"
		prompts, err := parseImagePrompts(raw)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(prompts) != 2 {
			t.Fatalf("2件のはずなのだ: %d", len(prompts))
		}
		if prompts[0].ImageName != "cover.jpg" || prompts[0].Prompt != "a cat" {
			t.Errorf("1件目が違うのだ: %+v", prompts[0])
		}
	})

	t.Run("JSONでない応答はエラーなのだ", func(t *testing.T) {
		if _, err := parseImagePrompts("ごめんなさい、作成できませんでした。"); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})

	t.Run("空配列はエラーなのだ", func(t *testing.T) {
		if _, err := parseImagePrompts("[]"); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})
}

func TestParseValidationReport(t *testing.T) {
	t.Run("スコアと改善点を読み取るのだ", func(t *testing.T) {
		raw := "```json\n{\n  \"overall_score\": 6.5,\n  \"pass\": false,\n  \"key_improvements\": [\"キャラクターの外見を統一するのだ\"]\n}\n```"
		report, err := parseValidationReport(raw)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if report.Overall != 6.5 || report.Pass {
			t.Errorf("スコアの読み取りが違うのだ: %+v", report)
		}
		if len(report.KeyImprovements) != 1 {
			t.Errorf("改善点が1件のはずなのだ: %+v", report.KeyImprovements)
		}
	})

	t.Run("壊れた応答はエラーなのだ", func(t *testing.T) {
		if _, err := parseValidationReport("{overall_score: oops"); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})
}

func TestVerifyPromptSet(t *testing.T) {
	s := &domain.Story{
		Title: "テスト",
		Pages: []domain.Page{
			{Number: 1, Lines: []string{"a"}},
			{Number: 2, Lines: []string{"b"}},
		},
	}

	t.Run("表紙+全ページが揃っていれば合格なのだ", func(t *testing.T) {
		prompts := []domain.ImagePrompt{
			{ImageName: "cover.jpg"},
			{ImageName: "page1.jpg"},
			{ImageName: "page2.jpg"},
		}
		if err := verifyPromptSet(s, prompts); err != nil {
			t.Errorf("予期しないエラーなのだ: %v", err)
		}
	})

	t.Run("ページが欠けていればエラーなのだ", func(t *testing.T) {
		prompts := []domain.ImagePrompt{
			{ImageName: "cover.jpg"},
			{ImageName: "page2.jpg"},
		}
		if err := verifyPromptSet(s, prompts); err == nil {
			t.Error("page1.jpg の欠落を検出するはずなのだ")
		}
	})

	t.Run("余分な名前が混ざっていてもエラーなのだ", func(t *testing.T) {
		prompts := []domain.ImagePrompt{
			{ImageName: "cover.jpg"},
			{ImageName: "page1.jpg"},
			{ImageName: "page2.jpg"},
			{ImageName: "page9.jpg"},
		}
		if err := verifyPromptSet(s, prompts); err == nil {
			t.Error("件数の不一致を検出するはずなのだ")
		}
	})
}
