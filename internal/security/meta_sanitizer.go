package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/goalquiz/internal/model"
)

// MetaSanitizer はクライアントから受け取ったセッションメタデータを
// 無害化するインターフェースを定義する。
// メタデータの文字列値は後続のAPI応答や通知にそのまま含まれるため、
// 保存前にHTMLタグや制御文字を除去する必要がある。
type MetaSanitizer interface {
	// SanitizeMeta はメタデータ内のすべての文字列値を無害化し、
	// 新しいMetaを返す。入力のMetaは変更しない。
	SanitizeMeta(meta model.Meta) model.Meta

	// SanitizeString は単一の文字列を無害化する。
	SanitizeString(s string) string
}

// metaSanitizer はMetaSanitizerの実装。
// bluemondayのStrictPolicyを使用し、すべてのHTMLタグを除去する。
type metaSanitizer struct {
	policy *bluemonday.Policy
}

// NewMetaSanitizer はMetaSanitizerの新しいインスタンスを生成する。
func NewMetaSanitizer() *metaSanitizer {
	return &metaSanitizer{
		// StrictPolicy: すべてのHTML要素と属性を除去する
		policy: bluemonday.StrictPolicy(),
	}
}

var _ MetaSanitizer = (*metaSanitizer)(nil)

// SanitizeMeta はメタデータ内のすべての文字列値を無害化する。
// ネストしたマップやスライスの中の文字列も再帰的に処理する。
// 数値・真偽値はそのまま保持される。
func (s *metaSanitizer) SanitizeMeta(meta model.Meta) model.Meta {
	if meta == nil {
		return nil
	}
	out := make(model.Meta, len(meta))
	for k, v := range meta {
		out[k] = s.sanitizeValue(v)
	}
	return out
}

// SanitizeString は単一の文字列を無害化する。
// HTMLタグを除去した後、bluemondayがエスケープしたエンティティを
// 元のテキストに戻し、前後の空白を取り除く。
func (s *metaSanitizer) SanitizeString(in string) string {
	sanitized := s.policy.Sanitize(in)
	// StrictPolicyは & < > 等をエンティティ化するため、
	// プレーンテキストとして保存できるように戻す
	return strings.TrimSpace(html.UnescapeString(sanitized))
}

// sanitizeValue は任意の値を型に応じて無害化する。
func (s *metaSanitizer) sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.SanitizeString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = s.sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = s.sanitizeValue(inner)
		}
		return out
	default:
		return v
	}
}
