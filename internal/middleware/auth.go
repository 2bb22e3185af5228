// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/model"
)

// AuthGate はリクエスト単位の認証ポリシーのインターフェース。
// auth.Gateの部分集合として定義する。
type AuthGate interface {
	RequireAuth(r *http.Request) (*auth.Identity, error)
	OptionalAuth(r *http.Request) (*auth.Identity, error)
}

// NewRequireAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 認証済みIdentityをリクエストコンテキストに注入するミドルウェアを返す。
// 認証に失敗したリクエストには401を返し、後続のハンドラーを呼び出さない。
func NewRequireAuthMiddleware(gate AuthGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.RequireAuth(r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			annotateIdentity(r.Context(), identity)
			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalAuthMiddleware は有効なトークンがある場合のみIdentityを注入するミドルウェアを返す。
// トークンが無い・不正な場合は匿名リクエストとして後続に渡す。
// ユーザーストアの障害時は匿名扱いにせず500を返す。
func NewOptionalAuthMiddleware(gate AuthGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.OptionalAuth(r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			if identity != nil {
				annotateIdentity(r.Context(), identity)
				r = r.WithContext(auth.ContextWithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, apiErr)
		return
	}

	slog.Error("authentication failed with internal error",
		slog.String("error", err.Error()),
	)
	WriteInternalServerError(w)
}
