// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hitoshi/shortpost/internal/middleware"
	"github.com/hitoshi/shortpost/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// MessageInvalidRequestBody はJSONとして解釈できないボディに対するメッセージ。
const MessageInvalidRequestBody = "Invalid request body"

// messageResponse はメッセージのみを返すレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// decodeJSONBody はリクエストボディをdstにデコードする。
// 失敗した場合はBadRequestのAPIErrorを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewBadRequestError(MessageInvalidRequestBody)
	}
	return nil
}

// validationError はozzo-validationの検証結果をフィールド詳細付きのAPIErrorに変換する。
// 検証ルール自体の不具合はそのまま返す。
func validationError(message string, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	details := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		details[field] = fieldErr.Error()
	}
	return model.NewValidationError(message, details)
}

// handleServiceError はサービス層から返されたエラーを統一エラーレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
