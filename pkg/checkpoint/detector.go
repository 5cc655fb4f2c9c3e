// Package checkpoint は本のルートディレクトリを検査して「次にやるべき工程」を
// 決定するステージ検出器を提供します。検出器は読み取り専用で、ディスク上の
// チェックポイント（story_details.txt / images/ / text_adjacent/）だけを信頼し、
// 過去の実行がどう終わったかという記憶には一切依存しないのだ。
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/story"
)

// Action はパイプラインが次に実行すべき工程です。
type Action int

const (
	// ActionProduceStory はストーリーファイルがまだ無い（または空の）状態です。
	ActionProduceStory Action = iota
	// ActionProduceImages は画像セットが不完全な状態です。
	ActionProduceImages
	// ActionProduceLayout はレイアウト済み画像が不完全または古い状態です。
	ActionProduceLayout
	// ActionDone は全チェックポイントが揃った完了状態です。
	ActionDone
)

// String はログ出力用の工程名を返します。
func (a Action) String() string {
	switch a {
	case ActionProduceStory:
		return "PRODUCE_STORY"
	case ActionProduceImages:
		return "PRODUCE_IMAGES"
	case ActionProduceLayout:
		return "PRODUCE_LAYOUT"
	case ActionDone:
		return "DONE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// NextAction は本のルートを検査し、次に実行すべき工程を返します。
//
// 判定は固定順で行います:
//  1. story_details.txt が存在し空でない → 無ければ PRODUCE_STORY
//  2. images/ に cover.jpg と全ページ分の pageN.jpg が揃っている → 欠けていれば PRODUCE_IMAGES
//  3. text_adjacent/ に同じファイル一式が揃い、どれも元画像より古くない → 欠けていれば PRODUCE_LAYOUT
//  4. すべて満たせば DONE
//
// ストーリーファイルが解析できない場合は推測せず *domain.MalformedStoryError を返すのだ。
func NextAction(root string) (Action, error) {
	storyPath := filepath.Join(root, domain.StoryFileName)
	info, err := os.Stat(storyPath)
	if err != nil || info.Size() == 0 {
		return ActionProduceStory, nil
	}

	s, err := story.LoadFile(storyPath)
	if err != nil {
		return ActionProduceStory, err
	}
	names := s.ArtifactNames()

	imagesDir := filepath.Join(root, domain.ImagesDirName)
	if !hasAll(imagesDir, names) {
		return ActionProduceImages, nil
	}

	layoutDir := filepath.Join(root, domain.LayoutDirName)
	if !hasAll(layoutDir, names) {
		return ActionProduceLayout, nil
	}

	// レイアウトが元画像より古い場合は再レイアウトが必要です。
	// 画像工程をやり直した後にレイアウトだけが取り残される事故を防ぐのだ。
	for _, name := range names {
		src, err := os.Stat(filepath.Join(imagesDir, name))
		if err != nil {
			return ActionProduceImages, nil
		}
		dst, err := os.Stat(filepath.Join(layoutDir, name))
		if err != nil {
			return ActionProduceLayout, nil
		}
		if dst.ModTime().Before(src.ModTime()) {
			return ActionProduceLayout, nil
		}
	}

	return ActionDone, nil
}

// hasAll は dir に names のファイルが全て「存在して空でない」状態で
// 揃っているかを調べます。ディレクトリが存在しても空なら「無い」と同義です。
func hasAll(dir string, names []string) bool {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return false
	}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() || info.Size() == 0 {
			return false
		}
	}
	return true
}

// Inspect は status コマンド向けに、ページごとのアーティファクト存在状況を
// まとめて返します。NextAction と同じ契約で読み取り専用です。
func Inspect(root string, s *domain.Story) []domain.PageStatus {
	imagesDir := filepath.Join(root, domain.ImagesDirName)
	layoutDir := filepath.Join(root, domain.LayoutDirName)

	names := s.ArtifactNames()
	statuses := make([]domain.PageStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, domain.PageStatus{
			Name:   name,
			Image:  stateOf(filepath.Join(imagesDir, name)),
			Layout: stateOf(filepath.Join(layoutDir, name)),
		})
	}
	return statuses
}

func stateOf(path string) domain.ArtifactState {
	info, err := os.Stat(path)
	return domain.ArtifactState{
		Path:   path,
		Exists: err == nil && !info.IsDir() && info.Size() > 0,
	}
}
