package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/shortpost/internal/model"
)

// --- モック定義 ---

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id int64) (*model.User, error)
	calls      int
}

func (m *mockUserFinder) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.calls++
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func testUser(id int64) *model.User {
	return &model.User{
		ID:           id,
		Email:        "a@x.com",
		Name:         "Alice",
		PasswordHash: "$2a$12$secret-hash-value",
		CreatedAt:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 2, 9, 30, 0, 123000000, time.UTC),
	}
}

func TestResolver_Resolve_Success(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, "1h", clock)
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id != 7 {
				t.Errorf("id = %d, want %d", id, 7)
			}
			return testUser(7), nil
		},
	}

	token, _ := codec.Issue(7, "a@x.com")
	identity, err := NewResolver(codec, users).Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := Identity{
		ID:        7,
		Email:     "a@x.com",
		Name:      "Alice",
		CreatedAt: "2026-01-01T09:00:00.000Z",
		UpdatedAt: "2026-01-02T09:30:00.123Z",
	}
	if *identity != want {
		t.Errorf("identity = %+v, want %+v", *identity, want)
	}
	if users.calls != 1 {
		t.Errorf("FindByID calls = %d, want 1", users.calls)
	}
}

func TestResolver_Resolve_Failures(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, "1s", clock)
	valid, _ := codec.Issue(7, "a@x.com")

	expiredClock := newFakeClock()
	expiredCodec := newTestCodec(t, "1s", expiredClock)
	expired, _ := expiredCodec.Issue(7, "a@x.com")
	expiredClock.Advance(5 * time.Second)

	storeErr := errors.New("connection refused")

	tests := []struct {
		name      string
		codec     *TokenCodec
		token     string
		findFn    func(ctx context.Context, id int64) (*model.User, error)
		want      FailureReason
		wantCalls int
		authFail  bool
	}{
		{name: "garbage token", codec: codec, token: "abc.def.ghi", want: ReasonInvalidToken, wantCalls: 0, authFail: true},
		{name: "expired token", codec: expiredCodec, token: expired, want: ReasonExpiredToken, wantCalls: 0, authFail: true},
		{
			name: "user deleted after issuance", codec: codec, token: valid,
			findFn:    func(ctx context.Context, id int64) (*model.User, error) { return nil, nil },
			want:      ReasonUserNotFound,
			wantCalls: 1,
			authFail:  true,
		},
		{
			name: "store failure", codec: codec, token: valid,
			findFn:    func(ctx context.Context, id int64) (*model.User, error) { return nil, storeErr },
			want:      ReasonStoreUnavailable,
			wantCalls: 1,
			authFail:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserFinder{findByIDFn: tt.findFn}

			identity, err := NewResolver(tt.codec, users).Resolve(context.Background(), tt.token)
			if identity != nil {
				t.Errorf("identity = %+v, want nil", identity)
			}

			var failure *ResolveFailure
			if !errors.As(err, &failure) {
				t.Fatalf("error = %v, want *ResolveFailure", err)
			}
			if failure.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", failure.Reason, tt.want)
			}
			if failure.IsAuthenticationFailure() != tt.authFail {
				t.Errorf("IsAuthenticationFailure() = %v, want %v", failure.IsAuthenticationFailure(), tt.authFail)
			}
			if users.calls != tt.wantCalls {
				t.Errorf("FindByID calls = %d, want %d", users.calls, tt.wantCalls)
			}
		})
	}
}

func TestResolveFailure_UnwrapsCause(t *testing.T) {
	storeErr := errors.New("connection refused")
	err := error(&ResolveFailure{Reason: ReasonStoreUnavailable, Err: storeErr})

	if !errors.Is(err, storeErr) {
		t.Error("expected errors.Is to reach the store error")
	}

	expired := error(&ResolveFailure{Reason: ReasonExpiredToken, Err: ErrExpiredToken})
	if !errors.Is(expired, ErrExpiredToken) {
		t.Error("expected errors.Is to reach ErrExpiredToken")
	}
}
