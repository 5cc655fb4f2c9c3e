package layout

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // 参照画像に PNG が混ざっても読めるようにします
	"os"

	"github.com/shouni/go-ehon-kit/pkg/domain"
)

// DecodeFile はページ画像をデコードします。壊れたファイルは
// *domain.ImageDecodeError で失敗し、そのページだけが局所的に失敗します。
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ImageDecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &domain.ImageDecodeError{Path: path, Err: err}
	}
	return img, nil
}

// EncodeJPEG は合成結果を JPEG バイト列にエンコードします。
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
