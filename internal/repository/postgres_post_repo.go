package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shortpost/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// 読み取り系はusersをLEFT JOINし、投稿者名を併せて返す。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT p.id, p.content, p.user_id, u.name, p.created_at, p.updated_at
		 FROM posts p
		 LEFT JOIN users u ON u.id = p.user_id
		 WHERE p.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// List は投稿を作成日時の新しい順にoffsetからlimit件返す。
func (r *PostgresPostRepo) List(ctx context.Context, offset, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.content, p.user_id, u.name, p.created_at, p.updated_at
		 FROM posts p
		 LEFT JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// Count は投稿の総数を返す。
func (r *PostgresPostRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// Create は投稿を作成する。UserIDがnilの場合は匿名投稿として保存する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	var authorName sql.NullString
	err := r.db.QueryRowContext(ctx,
		`WITH inserted AS (
		     INSERT INTO posts (content, user_id)
		     VALUES ($1, $2)
		     RETURNING id, user_id, created_at, updated_at
		 )
		 SELECT i.id, u.name, i.created_at, i.updated_at
		 FROM inserted i
		 LEFT JOIN users u ON u.id = i.user_id`,
		post.Content, nullableInt64(post.UserID),
	).Scan(&post.ID, &authorName, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	post.AuthorName = stringPtr(authorName)
	return nil
}

// UpdateContent は投稿本文とupdated_atを更新する。
func (r *PostgresPostRepo) UpdateContent(ctx context.Context, id int64, content string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`WITH updated AS (
		     UPDATE posts SET content = $1, updated_at = NOW()
		     WHERE id = $2
		     RETURNING id, content, user_id, created_at, updated_at
		 )
		 SELECT p.id, p.content, p.user_id, u.name, p.created_at, p.updated_at
		 FROM updated p
		 LEFT JOIN users u ON u.id = p.user_id`,
		content, id,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// Delete は指定IDの投稿を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		post       model.Post
		userID     sql.NullInt64
		authorName sql.NullString
	)
	if err := s.Scan(&post.ID, &post.Content, &userID, &authorName, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		post.UserID = &userID.Int64
	}
	post.AuthorName = stringPtr(authorName)
	return &post, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
