// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer はユーザーが入力するゲーム名・表示名を無害化し、
// 全クライアントに配信されるスナップショット経由のXSSを防ぐ。
// bluemondayのStrictPolicy（全HTMLタグを除去）を使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer はユーザー入力名のサニタイズを行う。
// ポリシーはスレッドセーフで、単一インスタンスを共有できる。
type NameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerを生成する。
func NewNameSanitizer() *NameSanitizer {
	return &NameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグをすべて除去したプレーンテキストを返す。
// StrictPolicyは残ったテキストを実体参照にエスケープするため、
// 表示名としての自然さを保つようアンエスケープして返す
// （例: "Tom & Jerry" がそのまま残る）。前後の空白は取り除く。
// 同一入力に対して常に同一出力を返す（冪等）。
func (s *NameSanitizer) Sanitize(name string) string {
	cleaned := s.policy.Sanitize(name)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
