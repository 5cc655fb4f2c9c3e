package publisher

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ResolveOutputPath は、本のルートとファイル名から GCS/ローカルを考慮した
// 最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if strings.HasPrefix(strings.ToLower(baseDir), "gs://") {
		u, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("無効なGCS URIです: %w", err)
		}

		// url.JoinPath はパス部分のみを安全に結合し、スキーム部分を保護します
		u.Path, err = url.JoinPath(u.Path, fileName)
		if err != nil {
			return "", fmt.Errorf("GCSパスの結合に失敗しました: %w", err)
		}
		return u.String(), nil
	}
	return filepath.Join(baseDir, fileName), nil
}
