// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は投稿本文を保存前に正規化する。
// bluemondayのStrictPolicyで全てのHTMLタグを除去し、
// 連続する空白を1つにまとめたプレーンテキストを返す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿本文のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeForStorage はHTMLタグを除去し、空白を正規化したテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeForStorage(input string) string
}

// ContentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーは並行利用に対して安全。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は除去結果が収束するまで繰り返す最大回数。
const maxSanitizePasses = 8

// SanitizeForStorage はHTMLタグを除去し、空白を正規化したテキストを返す。
// 文字実体参照はタグ除去の前に展開するため、&lt;script&gt; のような
// エスケープ済みのマークアップも除去対象になる。
// 1回の除去で新たにタグが組み上がる入力もあるため、結果が変化しなくなるまで繰り返す。
func (s *ContentSanitizer) SanitizeForStorage(input string) string {
	out := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.sanitizeOnce(out)
		if next == out {
			return out
		}
		out = next
	}
	// 収束しない入力はマークアップになり得る記号ごと落とす
	return normalizeWhitespace(markupChars.Replace(out))
}

var markupChars = strings.NewReplacer("<", "", ">", "", "&", "")

// sanitizeOnce は実体参照の展開、タグ除去、空白の正規化を1回ずつ行う。
// bluemondayがテキストに付けたエスケープは元の文字に戻す。
func (s *ContentSanitizer) sanitizeOnce(input string) string {
	if input == "" {
		return ""
	}
	decoded := unescapeAll(input)
	return normalizeWhitespace(html.UnescapeString(s.policy.Sanitize(decoded)))
}

// unescapeAll は多重にエスケープされた文字実体参照を展開しきる。
func unescapeAll(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ ContentSanitizerService = (*ContentSanitizer)(nil)
