package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/middleware"
)

// withIdentity はテスト用に認証済みIdentityをコンテキストに注入するヘルパー。
func withIdentity(r *http.Request, identity *auth.Identity) *http.Request {
	return r.WithContext(auth.ContextWithIdentity(r.Context(), identity))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeSuccess は成功レスポンスのdataをdstにデコードするヘルパー。
func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success {
		t.Fatalf("success = false, want true")
	}
	if dst == nil {
		return
	}
	if err := json.Unmarshal(body.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// decodeError はエラーレスポンスをデコードするヘルパー。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Success {
		t.Fatalf("success = true, want false")
	}
	return body
}
