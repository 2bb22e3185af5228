package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/shortpost/internal/model"
)

// UserFinder はトークンの主体を読み込むためのユーザーストア。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// FailureReason はIdentity解決に失敗した内部的な理由。
// ログとメトリクスでのみ使用し、クライアントには公開しない。
type FailureReason string

const (
	ReasonInvalidToken     FailureReason = "invalid_token"
	ReasonExpiredToken     FailureReason = "expired_token"
	ReasonUserNotFound     FailureReason = "user_not_found"
	ReasonStoreUnavailable FailureReason = "store_unavailable"
)

// ResolveFailure はResolverが返す失敗。
type ResolveFailure struct {
	Reason FailureReason
	Err    error
}

// Error はerrorインターフェースを実装する。
func (f *ResolveFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("resolve identity: %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("resolve identity: %s", f.Reason)
}

// Unwrap は元のエラーを返す。
func (f *ResolveFailure) Unwrap() error {
	return f.Err
}

// IsAuthenticationFailure は失敗が資格情報側の問題（401相当）かどうかを返す。
// ストア障害の場合はfalse。
func (f *ResolveFailure) IsAuthenticationFailure() bool {
	return f.Reason != ReasonStoreUnavailable
}

// Resolver はトークンを検証し、主体のユーザーをストアから読み込む。
type Resolver struct {
	codec *TokenCodec
	users UserFinder
}

// NewResolver はResolverを生成する。
func NewResolver(codec *TokenCodec, users UserFinder) *Resolver {
	return &Resolver{
		codec: codec,
		users: users,
	}
}

// Resolve はトークンから認証済みIdentityを解決する。
// 失敗時は*ResolveFailureを返す。ストアへのアクセスはIDによる1回の読み取りのみ。
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := r.codec.Verify(token)
	if err != nil {
		reason := ReasonInvalidToken
		if errors.Is(err, ErrExpiredToken) {
			reason = ReasonExpiredToken
		}
		return nil, &ResolveFailure{Reason: reason, Err: err}
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, &ResolveFailure{Reason: ReasonStoreUnavailable, Err: err}
	}
	if user == nil {
		return nil, &ResolveFailure{Reason: ReasonUserNotFound}
	}

	return NewIdentity(user), nil
}
