package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

const testStory = `テストのほん

=== PAGES ===
Page 1:
Text: いちなのだ。

Page 2:
Text: になのだ。

Page 3:
Text: さんなのだ。
`

// writeStory は 3 ページ構成のストーリーチェックポイントを作ります。
func writeStory(t *testing.T, root string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, domain.StoryFileName), []byte(testStory), 0o644); err != nil {
		t.Fatalf("ストーリーの準備に失敗したのだ: %v", err)
	}
}

func writeArtifacts(t *testing.T, root, dir string, names ...string) {
	t.Helper()
	full := filepath.Join(root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("ディレクトリの準備に失敗したのだ: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(full, name), []byte("jpegdata"), 0o644); err != nil {
			t.Fatalf("アーティファクトの準備に失敗したのだ: %v", err)
		}
	}
}

var allNames = []string{"cover.jpg", "page1.jpg", "page2.jpg", "page3.jpg"}

func TestNextAction(t *testing.T) {
	t.Run("空のルートでは PRODUCE_STORY なのだ", func(t *testing.T) {
		root := t.TempDir()
		action, err := NextAction(root)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if action != ActionProduceStory {
			t.Errorf("期待 PRODUCE_STORY、実際 %s なのだ", action)
		}
	})

	t.Run("空のストーリーファイルは無いのと同じなのだ", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, domain.StoryFileName), nil, 0o644); err != nil {
			t.Fatal(err)
		}
		action, _ := NextAction(root)
		if action != ActionProduceStory {
			t.Errorf("期待 PRODUCE_STORY、実際 %s なのだ", action)
		}
	})

	t.Run("ストーリーだけある状態では PRODUCE_IMAGES なのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		action, err := NextAction(root)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if action != ActionProduceImages {
			t.Errorf("期待 PRODUCE_IMAGES、実際 %s なのだ", action)
		}
	})

	t.Run("画像が1枚でも欠けていれば PRODUCE_IMAGES なのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		// cover はあるが page2 が無い状態
		writeArtifacts(t, root, domain.ImagesDirName, "cover.jpg", "page1.jpg", "page3.jpg")
		action, _ := NextAction(root)
		if action != ActionProduceImages {
			t.Errorf("期待 PRODUCE_IMAGES、実際 %s なのだ", action)
		}
	})

	t.Run("画像一式が揃いレイアウトが無ければ PRODUCE_LAYOUT なのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		writeArtifacts(t, root, domain.ImagesDirName, allNames...)
		action, _ := NextAction(root)
		if action != ActionProduceLayout {
			t.Errorf("期待 PRODUCE_LAYOUT、実際 %s なのだ", action)
		}
	})

	t.Run("空のレイアウトディレクトリは無いのと同じなのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		writeArtifacts(t, root, domain.ImagesDirName, allNames...)
		if err := os.MkdirAll(filepath.Join(root, domain.LayoutDirName), 0o755); err != nil {
			t.Fatal(err)
		}
		action, _ := NextAction(root)
		if action != ActionProduceLayout {
			t.Errorf("期待 PRODUCE_LAYOUT、実際 %s なのだ", action)
		}
	})

	t.Run("すべて揃っていれば DONE なのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		writeArtifacts(t, root, domain.ImagesDirName, allNames...)
		writeArtifacts(t, root, domain.LayoutDirName, allNames...)
		action, err := NextAction(root)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if action != ActionDone {
			t.Errorf("期待 DONE、実際 %s なのだ", action)
		}
	})

	t.Run("レイアウトが元画像より古ければ PRODUCE_LAYOUT なのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		writeArtifacts(t, root, domain.ImagesDirName, allNames...)
		writeArtifacts(t, root, domain.LayoutDirName, allNames...)

		// page1 の元画像だけを未来の時刻に更新するのだ
		future := time.Now().Add(time.Hour)
		src := filepath.Join(root, domain.ImagesDirName, "page1.jpg")
		if err := os.Chtimes(src, future, future); err != nil {
			t.Fatal(err)
		}

		action, _ := NextAction(root)
		if action != ActionProduceLayout {
			t.Errorf("期待 PRODUCE_LAYOUT、実際 %s なのだ", action)
		}
	})

	t.Run("壊れたストーリーは推測せずエラーなのだ", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, domain.StoryFileName), []byte("タイトル\n変な行\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NextAction(root)
		if err == nil {
			t.Fatal("エラーになるべきなのだ")
		}
		var malformed *domain.MalformedStoryError
		if !errors.As(err, &malformed) {
			t.Errorf("MalformedStoryError であるべきなのだ: %T", err)
		}
	})
}

func TestInspect(t *testing.T) {
	t.Run("ページごとの存在状況を列挙するのだ", func(t *testing.T) {
		root := t.TempDir()
		writeStory(t, root)
		writeArtifacts(t, root, domain.ImagesDirName, allNames...)
		writeArtifacts(t, root, domain.LayoutDirName, "cover.jpg")

		s := &domain.Story{
			Title: "テストのほん",
			Pages: []domain.Page{
				{Number: 1, Lines: []string{"a"}},
				{Number: 2, Lines: []string{"b"}},
				{Number: 3, Lines: []string{"c"}},
			},
		}
		statuses := Inspect(root, s)
		if len(statuses) != 4 {
			t.Fatalf("表紙+3ページ分あるべきなのだ: %d", len(statuses))
		}
		if !statuses[0].Image.Exists || !statuses[0].Layout.Exists {
			t.Errorf("cover は両方存在するはずなのだ: %+v", statuses[0])
		}
		if !statuses[1].Image.Exists || statuses[1].Layout.Exists {
			t.Errorf("page1 は画像のみ存在するはずなのだ: %+v", statuses[1])
		}
	})
}
