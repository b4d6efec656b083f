// Package qrcode は参加リンクのQRコード画像生成を提供する。
// テキスト→PNGバイト列の純粋なエンコードユーティリティで、
// 生成結果はスナップショットに載せるためbase64文字列で返す。
package qrcode

import (
	"encoding/base64"

	qr "github.com/skip2/go-qrcode"
)

// Generator はQRコードのPNG画像を生成する。
type Generator struct {
	size int
}

// NewGenerator はGeneratorを生成する。sizeはPNGの一辺のピクセル数。
// 0以下の場合はスマートフォンで読み取りやすい256pxを使う。
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = 256
	}
	return &Generator{size: size}
}

// Base64PNG はテキストをQRコードにエンコードしたPNGをbase64で返す。
func (g *Generator) Base64PNG(text string) (string, error) {
	png, err := qr.Encode(text, qr.Medium, g.size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
