// Package gate は生成コンテンツの品質検証を「上限付きリトライ」で囲い込む
// 検証ゲートを提供します。検証→改善のループは試行回数だけで打ち切り、
// 上限に達したら現在の成果物をスコアに関係なく強制承認するのだ。
// 完璧さよりも前進を保証する方針で、パイプラインが永久に止まることはありません。
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// State は検証ゲートの状態機械の状態です。
// APPROVED と AUTO_APPROVED は終端で、そこから出る遷移はありません。
type State int

const (
	StatePending State = iota
	StateValidating
	StateImproving
	StateApproved
	StateAutoApproved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateValidating:
		return "VALIDATING"
	case StateImproving:
		return "IMPROVING"
	case StateApproved:
		return "APPROVED"
	case StateAutoApproved:
		return "AUTO_APPROVED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Report は validate 関数が返す検証結果です。
// スコアは 0〜10 のスケールで、7 以上が合格です。
type Report struct {
	Overall         float64            `json:"overall_score"`
	Pass            bool               `json:"pass"`
	ItemScores      map[string]float64 `json:"item_scores,omitempty"`
	KeyImprovements []string           `json:"key_improvements,omitempty"`
	NextSteps       string             `json:"next_steps,omitempty"`
}

// PassThreshold は合格ラインです。スコア 7 以上で追加の改善なしに承認されます。
const PassThreshold = 7.0

// Counter はリトライ回数の所有権を呼び出し側に置くためのカウンターです。
// ゲート自身は状態を持たず、同じ Counter を渡し続ける限り
// 複数回の RunWithBoundedRetry 呼び出しをまたいで上限が効きます。
type Counter struct {
	Attempts    int
	MaxAttempts int
}

// NewCounter は既定の上限（3回）のカウンターを返します。
func NewCounter() *Counter {
	return &Counter{MaxAttempts: 3}
}

// Exhausted は次の検証を許可できない状態かどうかを返します。
func (c *Counter) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// ValidateFunc は成果物一式を検証して Report を返すコラボレーターです。
type ValidateFunc func(ctx context.Context, items []domain.ImagePrompt) (*Report, error)

// ImproveFunc は改善提案を受けて成果物一式を作り直すコラボレーターです。
type ImproveFunc func(ctx context.Context, items []domain.ImagePrompt, report *Report) ([]domain.ImagePrompt, error)

// Result はゲートを通過した成果物と、その通過のされ方です。
type Result struct {
	Items    []domain.ImagePrompt
	State    State
	Report   *Report
	Attempts int
}

// AutoApproved は上限到達による強制承認だったかどうかを返します。
func (r *Result) AutoApproved() bool {
	return r.State == StateAutoApproved
}

// RunWithBoundedRetry は items を検証し、不合格なら改善して再検証するループを
// 回します。カウンターの上限に達したら現在の items をそのまま強制承認して
// 返すので、このゲートで処理が停滞することは決してないのだ。
//
// 検証または改善のコラボレーター自体がエラーを返した場合（通信断など）は
// 品質不合格とは区別し、エラーとして即座に呼び出し側へ返します。
func RunWithBoundedRetry(ctx context.Context, counter *Counter, items []domain.ImagePrompt, validate ValidateFunc, improve ImproveFunc) (*Result, error) {
	var lastReport *Report

	for {
		if counter.Exhausted() {
			slog.Warn("検証回数の上限に達したため強制承認します",
				"attempts", counter.Attempts,
				"last_score", lastScore(lastReport),
			)
			return &Result{Items: items, State: StateAutoApproved, Report: lastReport, Attempts: counter.Attempts}, nil
		}

		counter.Attempts++
		report, err := validate(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("検証コラボレーターの呼び出しに失敗しました（%d回目）: %w", counter.Attempts, err)
		}
		lastReport = report

		if report.Pass || report.Overall >= PassThreshold {
			slog.Info("検証に合格しました", "attempts", counter.Attempts, "score", report.Overall)
			return &Result{Items: items, State: StateApproved, Report: report, Attempts: counter.Attempts}, nil
		}

		// 上限に達していれば次の周回の冒頭で強制承認されます。
		// スコアの低さ自体では打ち切らない（回数だけが打ち切り条件）のだ。
		if counter.Exhausted() {
			continue
		}

		slog.Info("検証に不合格のため改善を試みます",
			"attempts", counter.Attempts,
			"score", report.Overall,
			"improvements", len(report.KeyImprovements),
		)
		improved, err := improve(ctx, items, report)
		if err != nil {
			return nil, fmt.Errorf("改善コラボレーターの呼び出しに失敗しました（%d回目）: %w", counter.Attempts, err)
		}
		if len(improved) > 0 {
			items = improved
		}
	}
}

func lastScore(r *Report) float64 {
	if r == nil {
		return 0
	}
	return r.Overall
}
