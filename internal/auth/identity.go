package auth

import "github.com/hitoshi/shortpost/internal/model"

// Identity は認証済みユーザーの公開用射影。
// パスワードハッシュは含まない。リクエスト処理中のみ存在する。
type Identity struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// NewIdentity はUserから公開フィールドのみを取り出したIdentityを生成する。
func NewIdentity(u *model.User) *Identity {
	return &Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: model.FormatTimestamp(u.CreatedAt),
		UpdatedAt: model.FormatTimestamp(u.UpdatedAt),
	}
}
