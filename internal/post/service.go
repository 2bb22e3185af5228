// Package post は投稿の一覧・作成・編集・削除のドメインロジックを提供する。
// 編集・削除は認証済みの所有者のみに許可される。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/model"
	"github.com/hitoshi/shortpost/internal/repository"
	"github.com/hitoshi/shortpost/internal/security"
)

// PageSize は一覧1ページあたりの投稿数。
const PageSize = 20

// MaxContentLength は投稿本文の最大文字数。
const MaxContentLength = 120

const (
	MessageInvalidPostData = "Invalid post data"
	MessageContentRequired = "Content is required"
	MessageContentTooLong  = "Content must be 120 characters or less"
	MessagePostNotFound    = "Post not found"
	MessageEditForbidden   = "You can only edit your own posts"
	MessageDeleteForbidden = "You can only delete your own posts"
)

// MutationRecorder は投稿の変更操作をメトリクスとして記録する。
type MutationRecorder interface {
	RecordPostMutation(operation, result string)
}

// Service は投稿のサービス層。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizerService
	recorder  MutationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnil可。
func NewService(
	postRepo repository.PostRepository,
	sanitizer security.ContentSanitizerService,
	recorder MutationRecorder,
) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// List は投稿を新しい順に1ページ分返す。1未満のページは1ページ目として扱う。
func (s *Service) List(ctx context.Context, page int) (*model.PostPage, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}

	posts, err := s.postRepo.List(ctx, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	if posts == nil {
		posts = []*model.Post{}
	}

	totalPages := (total + PageSize - 1) / PageSize
	return &model.PostPage{
		Posts:       posts,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalPosts:  total,
		HasMore:     page < totalPages,
	}, nil
}

// Create は投稿を作成する。identityがnilの場合は匿名投稿となる。
// 本文はサニタイズ後に1〜120文字である必要がある。
func (s *Service) Create(ctx context.Context, identity *auth.Identity, content string) (*model.Post, error) {
	content, err := s.normalizeContent(content)
	if err != nil {
		s.record("create", "invalid")
		return nil, err
	}

	p := &model.Post{Content: content}
	if identity != nil {
		ownerID := identity.ID
		p.UserID = &ownerID
	}

	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	s.record("create", "success")
	slog.Info("post created",
		slog.Int64("post_id", p.ID),
		slog.Bool("anonymous", p.UserID == nil),
		slog.Int("content_length", len([]rune(content))),
	)
	return p, nil
}

// Update は投稿本文を更新する。本文の検証後に所有者を確認し、
// 所有者以外からの更新は拒否してストアには書き込まない。
func (s *Service) Update(ctx context.Context, identity *auth.Identity, id int64, content string) (*model.Post, error) {
	if identity == nil {
		s.record("update", "unauthenticated")
		return nil, model.NewAuthenticationError(auth.MessageTokenRequired)
	}

	content, err := s.normalizeContent(content)
	if err != nil {
		s.record("update", "invalid")
		return nil, err
	}

	if err := s.authorize(ctx, identity, id, "update", MessageEditForbidden); err != nil {
		return nil, err
	}

	updated, err := s.postRepo.UpdateContent(ctx, id, content)
	if errors.Is(err, repository.ErrNotFound) {
		s.record("update", "not_found")
		return nil, model.NewNotFoundError(MessagePostNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	s.record("update", "success")
	slog.Info("post updated",
		slog.Int64("post_id", id),
		slog.Int64("user_id", identity.ID),
	)
	return updated, nil
}

// Delete は投稿を削除し、削除した投稿IDを返す。所有者以外からの削除は拒否する。
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, id int64) (int64, error) {
	if err := s.authorize(ctx, identity, id, "delete", MessageDeleteForbidden); err != nil {
		return 0, err
	}

	err := s.postRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.record("delete", "not_found")
		return 0, model.NewNotFoundError(MessagePostNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	s.record("delete", "success")
	slog.Info("post deleted",
		slog.Int64("post_id", id),
		slog.Int64("user_id", identity.ID),
	)
	return id, nil
}

// authorize は対象投稿を取得し、identityが所有者であることを確認する。
func (s *Service) authorize(ctx context.Context, identity *auth.Identity, id int64, operation, forbidden string) error {
	if identity == nil {
		s.record(operation, "unauthenticated")
		return model.NewAuthenticationError(auth.MessageTokenRequired)
	}

	p, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		s.record(operation, "not_found")
		return model.NewNotFoundError(MessagePostNotFound)
	}

	if auth.AuthorizeOwner(p.UserID, identity) != auth.Authorized {
		s.record(operation, "denied")
		slog.Warn("post mutation denied",
			slog.String("operation", operation),
			slog.Int64("post_id", id),
			slog.Int64("user_id", identity.ID),
		)
		return model.NewAuthorizationError(forbidden)
	}
	return nil
}

// normalizeContent は本文をサニタイズし、長さを検証する。
func (s *Service) normalizeContent(content string) (string, error) {
	content = s.sanitizer.SanitizeForStorage(content)
	err := validation.Validate(content,
		validation.Required.Error(MessageContentRequired),
		validation.RuneLength(1, MaxContentLength).Error(MessageContentTooLong),
	)
	if err != nil {
		return "", model.NewValidationError(MessageInvalidPostData, map[string]string{
			"content": err.Error(),
		})
	}
	return content, nil
}

func (s *Service) record(operation, result string) {
	if s.recorder != nil {
		s.recorder.RecordPostMutation(operation, result)
	}
}
