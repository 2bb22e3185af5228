// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと、フィールド単位の詳細を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, post, system
	Details  map[string]string // フィールド名 → 検証エラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization  = "AUTHORIZATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal       = "INTERNAL_SERVER_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// detailsにはフィールドごとのエラー内容を渡す（nil可）。
func NewValidationError(message string, details map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Details:  details,
	}
}

// NewBadRequestError はリクエスト形式の不正を表すエラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  message,
		Category: "validation",
	}
}

// NewAuthenticationError は認証失敗（401）を表すエラーを生成する。
// トークン不正・期限切れ・ユーザー不在のいずれでも同じメッセージ体系を使い、原因を外部に漏らさない。
func NewAuthenticationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthentication,
		Message:  message,
		Category: "auth",
	}
}

// NewAuthorizationError は認可失敗（403）を表すエラーを生成する。
func NewAuthorizationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthorization,
		Message:  message,
		Category: "auth",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  message,
		Category: "post",
	}
}

// NewConflictError は一意制約違反などの競合エラーを生成する。
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  message,
		Category: "validation",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimit,
		Message:  message,
		Category: "system",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
	}
}
