package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shouni/go-ehon-kit/internal/runner"
	"github.com/shouni/go-ehon-kit/pkg/checkpoint"
	"github.com/shouni/go-ehon-kit/pkg/domain"
	"github.com/shouni/go-ehon-kit/pkg/story"
)

// Coordinator は本のルートを検査しながら、残っている工程だけを順に実行します。
// 各工程の実体はインターフェースとして注入されるため、工程の中身を差し替えて
// 再開性や検証の振る舞いだけを独立に検査できるのだ。
type Coordinator struct {
	story  runner.StoryRunner
	images runner.ImageRunner
	layout runner.LayoutRunner
}

// NewCoordinator は Coordinator の新しいインスタンスを生成して返すのだ。
func NewCoordinator(sr runner.StoryRunner, ir runner.ImageRunner, lr runner.LayoutRunner) *Coordinator {
	return &Coordinator{
		story:  sr,
		images: ir,
		layout: lr,
	}
}

// Advance は DONE になるまで工程を 1 つずつ実行します。各工程の後には
// ディスク上のチェックポイントを再検査し、コラボレーターの成功報告と
// 実際の成果物が食い違っていれば *domain.ArtifactVerificationError で停止します。
// 既に存在するチェックポイントの工程は決して再実行しないので、
// どの時点でクラッシュしても同じコマンドで安全に再開できるのだ。
func (c *Coordinator) Advance(ctx context.Context, root string) (*domain.BookStatus, error) {
	status := &domain.BookStatus{Root: root}
	var (
		s            *domain.Story
		autoApproved bool
		pageErrs     map[string]string
	)

	for {
		action, err := checkpoint.NextAction(root)
		if err != nil {
			return status, err
		}
		if action == checkpoint.ActionDone {
			break
		}

		slog.Info("次の工程を実行するのだ", "action", action.String(), "root", root)

		switch action {
		case checkpoint.ActionProduceStory:
			s, err = c.story.Run(ctx, root)
			if err != nil {
				return status, err
			}

		case checkpoint.ActionProduceImages:
			if s, err = c.ensureStory(root, s); err != nil {
				return status, err
			}
			report, runErr := c.images.Run(ctx, root, s)
			if runErr != nil {
				return status, runErr
			}
			if report.AutoApproved {
				autoApproved = true
				status.LastScore = report.LastScore
				status.Warnings = append(status.Warnings,
					fmt.Sprintf("画像プロンプトの検証が%d回で打ち切られ、スコア%.1fのまま強制承認されました", report.Attempts, report.LastScore))
			}

		case checkpoint.ActionProduceLayout:
			if s, err = c.ensureStory(root, s); err != nil {
				return status, err
			}
			report, runErr := c.layout.Run(ctx, root, s)
			if runErr != nil {
				return status, runErr
			}
			if len(report.Failed) > 0 {
				// ページ局所の失敗は正直な報告なので検証エラーにはせず、
				// ページごとの内訳に載せてここで停止するのだ。
				pageErrs = report.Failed
				c.finalize(root, s, status, autoApproved, pageErrs)
				return status, nil
			}

		default:
			return status, fmt.Errorf("未知の工程です: %s", action)
		}

		// 再検証: コラボレーターの戻り値ではなくディスクを信じます。
		// 同じ工程が残ったままなら、成功報告は嘘だったということなのだ。
		next, err := checkpoint.NextAction(root)
		if err != nil {
			return status, err
		}
		if next == action {
			return status, &domain.ArtifactVerificationError{Stage: action.String(), Root: root}
		}
	}

	s, err := c.ensureStory(root, s)
	if err != nil {
		return status, err
	}
	c.finalize(root, s, status, autoApproved, pageErrs)
	status.Done = true
	return status, nil
}

// ensureStory は確定済みストーリーを返します。未読込ならチェックポイントから読むのだ。
func (c *Coordinator) ensureStory(root string, s *domain.Story) (*domain.Story, error) {
	if s != nil {
		return s, nil
	}
	return story.LoadFile(filepath.Join(root, domain.StoryFileName))
}

// finalize はページごとのアーティファクト内訳を status に書き込みます。
func (c *Coordinator) finalize(root string, s *domain.Story, status *domain.BookStatus, autoApproved bool, pageErrs map[string]string) {
	if s == nil {
		return
	}
	status.Title = s.Title
	status.Pages = checkpoint.Inspect(root, s)
	for i := range status.Pages {
		status.Pages[i].AutoApproved = autoApproved
		if msg, ok := pageErrs[status.Pages[i].Name]; ok {
			status.Pages[i].Err = msg
		}
	}
}

// Status はいかなる工程も実行せずに、現在のチェックポイント状況を返します。
// status コマンド用の読み取り専用の入り口なのだ。
func Status(root string) (*domain.BookStatus, error) {
	status := &domain.BookStatus{Root: root}

	action, err := checkpoint.NextAction(root)
	if err != nil {
		return status, err
	}
	status.Done = action == checkpoint.ActionDone

	if action == checkpoint.ActionProduceStory {
		// ストーリーがまだ無いので、ページ内訳は作れません。
		return status, nil
	}

	s, err := story.LoadFile(filepath.Join(root, domain.StoryFileName))
	if err != nil {
		return status, err
	}
	status.Title = s.Title
	status.Pages = checkpoint.Inspect(root, s)
	return status, nil
}
