package domain

import "fmt"

// アーティファクトの配置規約。パスはビット単位で再現する必要がある契約なのだ。
const (
	StoryFileName = "story_details.txt"
	ImagesDirName = "images"
	LayoutDirName = "text_adjacent"
	CoverBaseName = "cover.jpg"
)

// PageImageName は 1 始まりのページ番号からアーティファクト名を返します。
// 例: 1 -> "page1.jpg"
func PageImageName(number int) string {
	return fmt.Sprintf("page%d.jpg", number)
}

// ArtifactNames は表紙を先頭に、全ページ分のアーティファクト名を順に返すのだ。
// images/ と text_adjacent/ の両方がこの並びを共有します。
func (s *Story) ArtifactNames() []string {
	names := make([]string, 0, len(s.Pages)+1)
	names = append(names, CoverBaseName)
	for _, p := range s.Pages {
		names = append(names, PageImageName(p.Number))
	}
	return names
}

// ArtifactState は 1 つのチェックポイントファイルの存在状況です。
type ArtifactState struct {
	Path   string
	Exists bool
}

// PageStatus は 1 ページ分の成果物の最終状態です。
// 兄弟ページの失敗に巻き込まれないよう、ページ単位で独立に報告します。
type PageStatus struct {
	Name         string        // "cover.jpg" / "pageN.jpg"
	Image        ArtifactState
	Layout       ArtifactState
	AutoApproved bool   // 検証ゲートが強制承認したかどうか
	Err          string // レイアウト等のページ局所エラー（空なら成功）
}

// BookStatus はコーディネーターが最終的に返す一冊分の実行結果です。
// 単一の成否フラグではなく、ページごとの内訳を列挙するのだ。
type BookStatus struct {
	Root      string
	Title     string
	Done      bool
	Pages     []PageStatus
	Warnings  []string
	LastScore float64 // 強制承認時に残された最後の検証スコア
}
