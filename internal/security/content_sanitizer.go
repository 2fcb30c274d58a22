// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー投稿のテキストフィールドをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで処理する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿コンテンツのサニタイズ機能のインターフェースを定義する。
// ツール投稿の保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText はプレーンテキストフィールド向けのサニタイズを行う。
	// すべてのHTMLタグを除去し、エンティティをデコードし、前後の空白を取り除く。
	// ツール名や説明文はHTMLとして表示されることがないため、タグ自体を許可しない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去する。script, iframe, style および
// on*イベント属性も許可リストに含まれないため自動的に除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		strict: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はプレーンテキストフィールド向けのサニタイズを行う。
// bluemondayはタグ除去後のテキストをエンティティエスケープして返すため、
// 保存用のプレーンテキストとしてはデコードして戻す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	stripped := s.strict.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
