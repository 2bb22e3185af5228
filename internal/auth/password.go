// Package auth はパスワードハッシュ、ベアラートークンの発行・検証、
// リクエスト単位の認証ゲートおよび所有者チェックを提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はbcryptのワークファクター。
const DefaultCost = 12

// BcryptHasher はbcryptによるパスワードハッシュの生成と照合を行う。
// 状態を持たないため、複数のリクエストから並行に利用できる。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costがbcryptの許容範囲外の場合はDefaultCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost はハッシュ生成に使用するワークファクターを返す。
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash は平文パスワードからソルト付きハッシュを生成する。
// 呼び出しごとにソルトが異なるため、同一入力でも結果は一致しない。
// bcryptは72バイトを超える入力を拒否するため、その場合のみエラーを返す。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify は平文パスワードがハッシュと一致するかを判定する。
// 不正な形式のハッシュに対してはfalseを返す。
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
