package domain

import "fmt"

// MalformedStoryError は story_details.txt が契約どおりに解析できない場合のエラーです。
// 構造的な欠陥なので一冊全体を中断させる致命的エラーとして扱い、リトライはしません。
type MalformedStoryError struct {
	Path   string
	Reason string
}

func (e *MalformedStoryError) Error() string {
	return fmt.Sprintf("ストーリーファイル '%s' が不正です: %s", e.Path, e.Reason)
}

// ImageDecodeError は元画像がデコードできない場合のページ局所エラーです。
// 該当ページのレイアウトだけが失敗し、兄弟ページの処理は続行されます。
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("画像 '%s' のデコードに失敗しました: %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// InsufficientSpaceError は、最小フォントでもテキストブロックが
// 可読性の下限（画像高の10%）を満たす配置を確保できない場合のエラーです。
// 下限未満に縮めて黙って描くことは決してしないのだ。
type InsufficientSpaceError struct {
	ImageWidth  int
	ImageHeight int
	Lines       int
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("テキスト%d行を配置できる領域が見つかりません（画像 %dx%d、高さ下限10%%を確保できないのだ）",
		e.Lines, e.ImageWidth, e.ImageHeight)
}

// ArtifactVerificationError は、コラボレーターが成功を報告したにもかかわらず
// 期待されたチェックポイントがディスク上に現れなかった場合のエラーです。
// ステージを完了扱いにせず、その本のパイプラインを停止させます。
type ArtifactVerificationError struct {
	Stage string
	Root  string
}

func (e *ArtifactVerificationError) Error() string {
	return fmt.Sprintf("ステージ '%s' の成果物検証に失敗しました（%s に期待されたファイルが存在しません）", e.Stage, e.Root)
}
