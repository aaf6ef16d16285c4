// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は芳名帳の書き込みやお知らせ本文のHTMLを
// サニタイズし、XSS攻撃などのセキュリティリスクからゲストを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 芳名帳の書き込み保存前およびお知らせ本文の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, strong, em, blockquote）のみを通過させ、
	// script, iframe, style, img タグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
//
// ゲストが入力する芳名帳テキストには簡単な整形だけを許し、
// リンクや画像は一切通さない。招待状ページに他人の書き込みが
// 表示されるため、許可リストは意図的に狭くしてある。
// ポリシーの内容:
//   - 許可タグ: p, br, strong, em, blockquote
//   - 禁止タグ: a, img, script, iframe, style および全てのon*イベント属性
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されない
	p.AllowElements(
		"p", "br",
		"strong", "em",
		"blockquote",
	)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
