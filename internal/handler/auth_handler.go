package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/middleware"
	"github.com/hitoshi/shortpost/internal/model"
	"github.com/hitoshi/shortpost/internal/user"
)

const (
	MessageInvalidRegistrationData = "Invalid registration data"
	MessageInvalidLoginData        = "Invalid login data"
	MessageLoggedOut               = "Logged out successfully"

	// minPasswordLength はパスワードの最小文字数。
	minPasswordLength = 8
	// maxPasswordBytes はbcryptが扱える平文の上限バイト数。パスワードの上限はこれのみで決まる。
	maxPasswordBytes = 72

	MessagePasswordTooShort = "Password must be at least 8 characters"
	MessagePasswordTooLong  = "Password must be 72 bytes or less"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.AuthResult, error)
	Login(ctx context.Context, email, password string) (*user.AuthResult, error)
}

// AuthHandler は登録・ログイン・ログアウト・本人情報取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate は登録リクエストを検証する。
func (req registerRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email,
			validation.Required.Error("Email is required"),
			validation.Length(1, 255).Error("Email must be 255 characters or less"),
			is.Email.Error("Invalid email format"),
		),
		validation.Field(&req.Name,
			validation.Required.Error("Name is required"),
			validation.RuneLength(1, 100).Error("Name must be 100 characters or less"),
		),
		validation.Field(&req.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(minPasswordLength, 0).Error(MessagePasswordTooShort),
			validation.By(maxBytes(maxPasswordBytes, MessagePasswordTooLong)),
		),
	)
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate はログインリクエストを検証する。
func (req loginRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Invalid email format"),
		),
		validation.Field(&req.Password,
			validation.Required.Error("Password is required"),
		),
	)
}

// maxBytes は文字列の長さをバイト単位で制限するルールを返す。
func maxBytes(limit int, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > limit {
			return errors.New(message)
		}
		return nil
	}
}

// Register はユーザーを登録し、トークンを発行する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	if err := req.Validate(); err != nil {
		handleServiceError(w, validationError(MessageInvalidRegistrationData, err))
		return
	}

	result, err := h.service.Register(r.Context(), user.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusCreated, result)
}

// Login はメールアドレスとパスワードを検証し、トークンを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := req.Validate(); err != nil {
		handleServiceError(w, validationError(MessageInvalidLoginData, err))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, result)
}

// Logout はログアウトを受け付ける。
// トークンはステートレスなため、破棄はクライアント側で行う。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if auth.IdentityFromContext(r.Context()) == nil {
		handleServiceError(w, model.NewAuthenticationError(auth.MessageTokenRequired))
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, messageResponse{Message: MessageLoggedOut})
}

// Me は認証済みユーザーの公開情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		handleServiceError(w, model.NewAuthenticationError(auth.MessageTokenRequired))
		return
	}

	middleware.WriteSuccessResponse(w, http.StatusOK, identity)
}
