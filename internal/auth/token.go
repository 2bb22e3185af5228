package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultSecret は開発用の署名鍵。本番環境では必ずJWT_SECRETで上書きすること。
	DefaultSecret = "your-secret-key-change-in-production"

	// DefaultExpiresIn はトークン有効期間のデフォルト値。
	DefaultExpiresIn = "24h"

	defaultExpiresInSeconds int64 = 86400
)

var (
	// ErrInvalidToken は署名不一致・形式不正・必須クレーム欠落を示す。
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken は署名は正しいが有効期限を過ぎたトークンを示す。
	ErrExpiredToken = errors.New("auth: expired token")
)

// Claims はトークンに埋め込むクレーム。
// iat/exp/jtiはRegisteredClaimsで保持する。
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenConfig はTokenCodecの設定。
type TokenConfig struct {
	Secret    string           // HS256署名鍵
	ExpiresIn string           // 有効期間（例: "24h", "30m", "7d"）
	Now       func() time.Time // 現在時刻（nilの場合はtime.Now）
}

// TokenCodec はHS256で署名されたベアラートークンの発行と検証を行う。
// サーバー側に状態を持たず、検証はトークンと署名鍵のみで完結する。
type TokenCodec struct {
	secret    []byte
	expiresIn int64
	now       func() time.Time
	parser    *jwt.Parser
}

// NewTokenCodec はTokenCodecを生成する。
// 署名鍵が空の場合は設定ミスとしてエラーを返す。
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is not configured")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenCodec{
		secret:    []byte(cfg.Secret),
		expiresIn: ParseExpiresIn(cfg.ExpiresIn),
		now:       now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// ExpiresInSeconds はトークン有効期間（秒）を返す。
// クライアントに返すexpiresInと、発行時のexp計算の双方で同じ値を使う。
func (c *TokenCodec) ExpiresInSeconds() int64 {
	return c.expiresIn
}

// Issue はユーザーIDとメールアドレスを埋め込んだトークンを発行する。
func (c *TokenCodec) Issue(userID int64, email string) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(c.expiresIn) * time.Second)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 署名・形式の不正はErrInvalidToken、期限切れはErrExpiredTokenを返す。
// 署名検証は期限判定より先に行うため、改ざんされた期限切れトークンはErrInvalidTokenとなる。
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID <= 0 || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if c.now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}

	return claims, nil
}

// ParseExpiresIn は "<整数><単位>" 形式の期間文字列を秒数に変換する。
// 単位は末尾1文字（s, m, h, d）、数値は先頭の数字列を用いる。
// 単位が無い・未知・数値が無い・0以下の場合は86400秒（24時間）とする。
func ParseExpiresIn(s string) int64 {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return defaultExpiresInSeconds
	}

	var multiplier int64
	switch s[len(s)-1] {
	case 's':
		multiplier = 1
	case 'm':
		multiplier = 60
	case 'h':
		multiplier = 60 * 60
	case 'd':
		multiplier = 24 * 60 * 60
	default:
		return defaultExpiresInSeconds
	}

	digits := s[:len(s)-1]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}

	value, err := strconv.ParseInt(digits[:end], 10, 64)
	if err != nil || value <= 0 || value > (1<<62)/multiplier/int64(time.Second) {
		return defaultExpiresInSeconds
	}

	return value * multiplier
}

// ExtractBearerToken はAuthorizationヘッダー値からトークンを取り出す。
// "Bearer <token>" のちょうど2要素でない場合はfalseを返す。
func ExtractBearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
