// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/shortpost/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約違反を示す。
	ErrDuplicateEmail = errors.New("repository: duplicate email")

	// ErrNotFound は更新・削除対象の行が存在しないことを示す。
	ErrNotFound = errors.New("repository: not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスが完全一致するユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成時刻をuserに設定する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを作成日時の新しい順に返す。
	List(ctx context.Context) ([]*model.User, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を投稿者名付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Post, error)

	// List は投稿を作成日時の新しい順にoffsetからlimit件返す。
	List(ctx context.Context, offset, limit int) ([]*model.Post, error)

	// Count は投稿の総数を返す。
	Count(ctx context.Context) (int, error)

	// Create は投稿を作成し、採番されたIDと作成時刻をpostに設定する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateContent は投稿本文を更新し、更新後の投稿を返す。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateContent(ctx context.Context, id int64, content string) (*model.Post, error)

	// Delete は指定IDの投稿を削除する。対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error
}
