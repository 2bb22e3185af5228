// Package model はドメインモデルを定義する。
package model

import "time"

// TimestampLayout はAPIレスポンスに載せる時刻のISO-8601表現（UTC・ミリ秒）。
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp は時刻をUTCのISO-8601文字列に変換する。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、レスポンスやログに含めてはならない。
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
