// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は商品名やカテゴリなどのプレーンテキスト入力から
// HTMLマークアップを除去する。出力時のエスケープはテンプレートが行うため、
// ここではタグを落としたうえで文字参照を元の文字に戻して保存する。
// 文字参照を戻すと新たなタグが現れることがあるため、出力が変わらなくなるまで繰り返す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は全てのタグを除去したテキストを返す。
// 1回の除去で文字参照がひと段ずつ戻るため、入力長を繰り返しの上限とする。
func (s *textSanitizer) Sanitize(raw string) string {
	cur := raw
	for i := 0; i <= len(raw); i++ {
		next := s.strip(cur)
		if next == cur {
			return next
		}
		cur = next
	}
	return cur
}

func (s *textSanitizer) strip(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
