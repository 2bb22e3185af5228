package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// ContextWithIdentity は認証済みIdentityをコンテキストに格納する。
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext はコンテキストからIdentityを取得する。
// 匿名リクエストの場合はnilを返す。
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}
