// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はプラットフォームから取得したユーザー入力由来の
// テキスト（自己紹介文・表示名・グループ名等）をサニタイズし、
// APIレスポンスに埋め込まれたマークアップがクライアント側でXSSとして
// 解釈されるリスクを除去する。bluemondayの厳格ポリシーを使用し、
// 一切のHTMLタグを通過させない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力テキストのサニタイズ機能の
// インターフェースを定義する。プロフィールレポート構築時に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストからすべてのHTMLマークアップを除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// プロフィールの自己紹介文はプレーンテキストとして扱うため、
// StrictPolicy（全タグ除去）を使用する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストからすべてのHTMLマークアップを除去して返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
