package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shortpost/internal/model"
)

const (
	MessageTokenRequired         = "Authorization token required"
	MessageInvalidOrExpiredToken = "Invalid or expired token"
)

// IdentityResolver はトークンからIdentityを解決する。
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// RejectionRecorder はトークン拒否をメトリクスとして記録する。
type RejectionRecorder interface {
	RecordTokenRejection(reason string)
}

// Gate はリクエスト単位の認証ポリシーを提供する。
// RequireAuthは失敗時に拒否し、OptionalAuthは匿名として扱う。
type Gate struct {
	resolver IdentityResolver
	recorder RejectionRecorder
}

// NewGate はGateを生成する。recorderはnil可。
func NewGate(resolver IdentityResolver, recorder RejectionRecorder) *Gate {
	return &Gate{
		resolver: resolver,
		recorder: recorder,
	}
}

// RequireAuth はAuthorizationヘッダーのトークンを検証し、認証済みIdentityを返す。
// トークンが無い場合は"Authorization token required"、
// 不正・期限切れ・ユーザー不在の場合は"Invalid or expired token"の認証エラーを返す。
// ストア障害は認証エラーに変換せず、内部エラーとして返す。
func (g *Gate) RequireAuth(r *http.Request) (*Identity, error) {
	token, ok := ExtractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, model.NewAuthenticationError(MessageTokenRequired)
	}

	identity, err := g.resolver.Resolve(r.Context(), token)
	if err != nil {
		return nil, g.reject(r, err)
	}
	return identity, nil
}

// OptionalAuth はRequireAuthと同じ検証を行うが、認証に失敗した場合は(nil, nil)を返す。
// トークン無し・不正・期限切れ・ユーザー不在はいずれも匿名扱いとなる。
// ストア障害のみはエラーとして返し、匿名へのフォールバックは行わない。
func (g *Gate) OptionalAuth(r *http.Request) (*Identity, error) {
	token, ok := ExtractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, nil
	}

	identity, err := g.resolver.Resolve(r.Context(), token)
	if err != nil {
		err = g.reject(r, err)
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}

// reject はResolverの失敗をログ・メトリクスに記録し、呼び出し元に返すエラーへ変換する。
func (g *Gate) reject(r *http.Request, err error) error {
	reason := ReasonInvalidToken
	var failure *ResolveFailure
	if errors.As(err, &failure) {
		reason = failure.Reason
	}

	if g.recorder != nil {
		g.recorder.RecordTokenRejection(string(reason))
	}

	if reason == ReasonStoreUnavailable {
		slog.Error("identity resolution failed",
			slog.String("reason", string(reason)),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("authenticate request: %w", err)
	}

	slog.Warn("token rejected",
		slog.String("reason", string(reason)),
		slog.String("path", r.URL.Path),
	)
	return model.NewAuthenticationError(MessageInvalidOrExpiredToken)
}
