package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/shortpost/internal/model"
)

// mockRejectionRecorder はRejectionRecorderのモック実装。
type mockRejectionRecorder struct {
	reasons []string
}

func (m *mockRejectionRecorder) RecordTokenRejection(reason string) {
	m.reasons = append(m.reasons, reason)
}

// mockResolver はIdentityResolverのモック実装。
type mockResolver struct {
	resolveFn func(ctx context.Context, token string) (*Identity, error)
	calls     int
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	return nil, nil
}

func requestWithAuthorization(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func assertAuthenticationError(t *testing.T, err error, wantMessage string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeAuthentication {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeAuthentication)
	}
	if apiErr.Message != wantMessage {
		t.Errorf("Message = %q, want %q", apiErr.Message, wantMessage)
	}
}

func TestGate_RequireAuth_NoHeader(t *testing.T) {
	resolver := &mockResolver{}
	gate := NewGate(resolver, nil)

	identity, err := gate.RequireAuth(requestWithAuthorization(""))
	if identity != nil {
		t.Errorf("identity = %+v, want nil", identity)
	}
	assertAuthenticationError(t, err, MessageTokenRequired)
	if resolver.calls != 0 {
		t.Errorf("Resolve calls = %d, want 0", resolver.calls)
	}
}

func TestGate_RequireAuth_MalformedHeaderTreatedAsMissing(t *testing.T) {
	gate := NewGate(&mockResolver{}, nil)

	for _, h := range []string{"Token xyz", "Bearer", "Basic dXNlcjpwYXNz"} {
		_, err := gate.RequireAuth(requestWithAuthorization(h))
		assertAuthenticationError(t, err, MessageTokenRequired)
	}
}

func TestGate_RequireAuth_Success(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, "1h", clock)
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return testUser(id), nil
		},
	}
	gate := NewGate(NewResolver(codec, users), nil)

	token, _ := codec.Issue(7, "a@x.com")
	identity, err := gate.RequireAuth(requestWithAuthorization("Bearer " + token))
	if err != nil {
		t.Fatalf("RequireAuth() error = %v", err)
	}
	if identity.ID != 7 {
		t.Errorf("ID = %d, want %d", identity.ID, 7)
	}
}

func TestGate_RequireAuth_ResolverFailuresCollapseToOneMessage(t *testing.T) {
	reasons := []FailureReason{ReasonInvalidToken, ReasonExpiredToken, ReasonUserNotFound}

	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			recorder := &mockRejectionRecorder{}
			gate := NewGate(&mockResolver{
				resolveFn: func(ctx context.Context, token string) (*Identity, error) {
					return nil, &ResolveFailure{Reason: reason}
				},
			}, recorder)

			_, err := gate.RequireAuth(requestWithAuthorization("Bearer abc.def.ghi"))
			assertAuthenticationError(t, err, MessageInvalidOrExpiredToken)

			if len(recorder.reasons) != 1 || recorder.reasons[0] != string(reason) {
				t.Errorf("recorded reasons = %v, want [%s]", recorder.reasons, reason)
			}
		})
	}
}

func TestGate_RequireAuth_StoreFailureIsNotAuthenticationError(t *testing.T) {
	storeErr := errors.New("connection refused")
	gate := NewGate(&mockResolver{
		resolveFn: func(ctx context.Context, token string) (*Identity, error) {
			return nil, &ResolveFailure{Reason: ReasonStoreUnavailable, Err: storeErr}
		},
	}, nil)

	_, err := gate.RequireAuth(requestWithAuthorization("Bearer abc.def.ghi"))
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("store failure should not be an APIError, got %v", apiErr)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want wrapping %v", err, storeErr)
	}
}

func TestGate_OptionalAuth_NoHeaderIsAnonymous(t *testing.T) {
	resolver := &mockResolver{}
	gate := NewGate(resolver, nil)

	identity, err := gate.OptionalAuth(requestWithAuthorization(""))
	if err != nil {
		t.Errorf("OptionalAuth() error = %v, want nil", err)
	}
	if identity != nil {
		t.Errorf("identity = %+v, want nil", identity)
	}
	if resolver.calls != 0 {
		t.Errorf("Resolve calls = %d, want 0", resolver.calls)
	}
}

func TestGate_OptionalAuth_AuthenticationFailuresAreAnonymous(t *testing.T) {
	for _, reason := range []FailureReason{ReasonInvalidToken, ReasonExpiredToken, ReasonUserNotFound} {
		t.Run(string(reason), func(t *testing.T) {
			gate := NewGate(&mockResolver{
				resolveFn: func(ctx context.Context, token string) (*Identity, error) {
					return nil, &ResolveFailure{Reason: reason}
				},
			}, nil)

			identity, err := gate.OptionalAuth(requestWithAuthorization("Bearer abc.def.ghi"))
			if err != nil {
				t.Errorf("OptionalAuth() error = %v, want nil", err)
			}
			if identity != nil {
				t.Errorf("identity = %+v, want nil", identity)
			}
		})
	}
}

func TestGate_OptionalAuth_StoreFailurePropagates(t *testing.T) {
	gate := NewGate(&mockResolver{
		resolveFn: func(ctx context.Context, token string) (*Identity, error) {
			return nil, &ResolveFailure{Reason: ReasonStoreUnavailable, Err: errors.New("timeout")}
		},
	}, nil)

	identity, err := gate.OptionalAuth(requestWithAuthorization("Bearer abc.def.ghi"))
	if err == nil {
		t.Error("expected store failure to propagate")
	}
	if identity != nil {
		t.Errorf("identity = %+v, want nil", identity)
	}
}

func TestGate_OptionalAuth_Success(t *testing.T) {
	want := &Identity{ID: 3, Email: "c@x.com", Name: "Carol"}
	gate := NewGate(&mockResolver{
		resolveFn: func(ctx context.Context, token string) (*Identity, error) {
			if token != "abc.def.ghi" {
				t.Errorf("token = %q, want %q", token, "abc.def.ghi")
			}
			return want, nil
		},
	}, nil)

	identity, err := gate.OptionalAuth(requestWithAuthorization("Bearer abc.def.ghi"))
	if err != nil {
		t.Fatalf("OptionalAuth() error = %v", err)
	}
	if identity != want {
		t.Errorf("identity = %+v, want %+v", identity, want)
	}
}
