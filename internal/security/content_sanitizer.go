// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は出品の自由入力テキスト（説明・状態）をサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧ユーザーを保護する。
// bluemondayライブラリの許可リストベースのポリシーを使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// 出品レコードの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力テキストからすべてのHTMLタグを除去して返す。
	// 出品の説明はプレーンテキストとして扱うため、許可タグは存在しない。
	// script, iframe, styleタグおよびon*イベント属性は中身ごと、
	// あるいはタグのみ除去される。前後の空白はトリミングされる。
	Sanitize(raw string) string
}

// listingSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type listingSanitizer struct {
	policy *bluemonday.Policy
}

// NewListingSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 出品テキストにHTMLは不要なため、全タグを除去するStrictPolicyを使用する。
func NewListingSanitizer() *listingSanitizer {
	return &listingSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを除去して返す。
// 空文字列の入力には空文字列を返す。
func (s *listingSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
