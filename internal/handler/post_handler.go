package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/middleware"
	"github.com/hitoshi/shortpost/internal/model"
)

const (
	MessageInvalidPostID = "Invalid post ID"
	MessagePostDeleted   = "Post deleted successfully"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, page int) (*model.PostPage, error)
	Create(ctx context.Context, identity *auth.Identity, content string) (*model.Post, error)
	Update(ctx context.Context, identity *auth.Identity, id int64, content string) (*model.Post, error)
	Delete(ctx context.Context, identity *auth.Identity, id int64) (int64, error)
}

// PostHandler は投稿の一覧・作成・編集・削除のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

// --- リクエスト・レスポンス型 ---

// postContentRequest は投稿作成・編集リクエストのボディ。
// userIdが含まれていても無視し、所有者は認証結果からのみ決定する。
type postContentRequest struct {
	Content string `json:"content"`
}

// postAuthorResponse は投稿者の公開情報。
type postAuthorResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// postResponse は投稿のレスポンス。匿名投稿ではuserIdとuserがnullになる。
type postResponse struct {
	ID        int64               `json:"id"`
	Content   string              `json:"content"`
	UserID    *int64              `json:"userId"`
	CreatedAt string              `json:"createdAt"`
	UpdatedAt string              `json:"updatedAt"`
	User      *postAuthorResponse `json:"user"`
}

// paginationResponse はページネーション情報。
type paginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalPosts  int  `json:"totalPosts"`
	HasMore     bool `json:"hasMore"`
}

// postListResponse は投稿一覧のレスポンス。
type postListResponse struct {
	Posts      []postResponse     `json:"posts"`
	Pagination paginationResponse `json:"pagination"`
}

// postEnvelope は単一投稿のレスポンス。
type postEnvelope struct {
	Post postResponse `json:"post"`
}

// postDeletedResponse は投稿削除のレスポンス。
type postDeletedResponse struct {
	Message   string `json:"message"`
	DeletedID int64  `json:"deletedId"`
}

func newPostResponse(p *model.Post) postResponse {
	resp := postResponse{
		ID:        p.ID,
		Content:   p.Content,
		UserID:    p.UserID,
		CreatedAt: model.FormatTimestamp(p.CreatedAt),
		UpdatedAt: model.FormatTimestamp(p.UpdatedAt),
	}
	if p.UserID != nil && p.AuthorName != nil {
		resp.User = &postAuthorResponse{ID: *p.UserID, Name: *p.AuthorName}
	}
	return resp
}

// --- ハンドラー ---

// ListPosts は投稿一覧を新しい順に返す。
// GET /api/posts?page=N
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.service.List(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts := make([]postResponse, 0, len(result.Posts))
	for _, p := range result.Posts {
		posts = append(posts, newPostResponse(p))
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, postListResponse{
		Posts: posts,
		Pagination: paginationResponse{
			CurrentPage: result.CurrentPage,
			TotalPages:  result.TotalPages,
			TotalPosts:  result.TotalPosts,
			HasMore:     result.HasMore,
		},
	})
}

// CreatePost は投稿を作成する。認証されていない場合は匿名投稿となる。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postContentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), auth.IdentityFromContext(r.Context()), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusCreated, postEnvelope{Post: newPostResponse(p)})
}

// UpdatePost は投稿本文を更新する。所有者のみ許可される。
// PUT /api/posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req postContentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), auth.IdentityFromContext(r.Context()), id, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, postEnvelope{Post: newPostResponse(p)})
}

// DeletePost は投稿を削除する。所有者のみ許可される。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	deletedID, err := h.service.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, postDeletedResponse{
		Message:   MessagePostDeleted,
		DeletedID: deletedID,
	})
}

// parsePostID はパスパラメータの投稿IDを正の整数として解釈する。
func parsePostID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewBadRequestError(MessageInvalidPostID)
	}
	return id, nil
}
