package model

import "time"

// Post は短文投稿を表す。
// UserIDがnilの投稿は匿名投稿であり、作成後は誰も編集・削除できない。
type Post struct {
	ID         int64
	Content    string
	UserID     *int64
	AuthorName *string // usersとのJOIN結果。匿名投稿または退会済みの場合はnil
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PostPage は投稿一覧の1ページ分とページネーション情報を表す。
type PostPage struct {
	Posts       []*Post
	CurrentPage int
	TotalPages  int
	TotalPosts  int
	HasMore     bool
}
