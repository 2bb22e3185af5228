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
	MessageUserIDRequired    = "User ID is required"
	MessageUserIDNotNumeric  = "User ID must be a number"
	MessageUserIDNotPositive = "User ID must be a positive integer"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get は指定IDのユーザーの公開情報を返す。
	Get(ctx context.Context, id int64) (*auth.Identity, error)
	// List は全ユーザーの公開情報を新しい順に返す。
	List(ctx context.Context) ([]*auth.Identity, error)
}

// UserHandler はユーザー一覧・詳細のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// userListResponse はユーザー一覧のレスポンス。
type userListResponse struct {
	Users []*auth.Identity `json:"users"`
	Count int              `json:"count"`
}

// ListUsers はユーザー一覧を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, userListResponse{
		Users: users,
		Count: len(users),
	})
}

// GetUser は指定IDのユーザーを返す。
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	identity, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, identity)
}

// parseUserID はパスパラメータのユーザーIDを検証して数値に変換する。
func parseUserID(raw string) (int64, error) {
	if raw == "" {
		return 0, model.NewBadRequestError(MessageUserIDRequired)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewBadRequestError(MessageUserIDNotNumeric)
	}
	if id <= 0 {
		return 0, model.NewBadRequestError(MessageUserIDNotPositive)
	}
	return id, nil
}
