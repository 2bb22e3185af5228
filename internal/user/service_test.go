package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/model"
	"github.com/hitoshi/shortpost/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id int64) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
	listFn        func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// mockHasher は"hashed:"接頭辞を付けるだけの高速なハッシャー。
type mockHasher struct {
	hashErr     error
	verifyCalls []string
}

func (m *mockHasher) Hash(plaintext string) (string, error) {
	if m.hashErr != nil {
		return "", m.hashErr
	}
	return "hashed:" + plaintext, nil
}
func (m *mockHasher) Verify(plaintext, hash string) bool {
	m.verifyCalls = append(m.verifyCalls, hash)
	return hash == "hashed:"+plaintext
}

type mockTokenIssuer struct {
	issueErr error
	issued   []int64
}

func (m *mockTokenIssuer) Issue(userID int64, email string) (string, error) {
	if m.issueErr != nil {
		return "", m.issueErr
	}
	m.issued = append(m.issued, userID)
	return "token-for-" + email, nil
}
func (m *mockTokenIssuer) ExpiresInSeconds() int64 { return 86400 }

type mockAuthRecorder struct {
	attempts []string
}

func (m *mockAuthRecorder) RecordAuthAttempt(action, result string) {
	m.attempts = append(m.attempts, action+":"+result)
}

var testTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func assertAPIErrorCode(t *testing.T, err error, wantCode, wantMessage string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, wantCode)
	}
	if apiErr.Message != wantMessage {
		t.Errorf("Message = %q, want %q", apiErr.Message, wantMessage)
	}
}

// --- Register ---

func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 1
			user.CreatedAt = testTime
			user.UpdatedAt = testTime
			created = user
			return nil
		},
	}
	hasher := &mockHasher{}
	tokens := &mockTokenIssuer{}
	recorder := &mockAuthRecorder{}
	svc := NewService(repo, hasher, tokens, recorder)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@x.com", Name: "Alice", Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created.PasswordHash != "hashed:password123" {
		t.Errorf("stored hash = %q, want hashed password", created.PasswordHash)
	}
	if result.Token != "token-for-a@x.com" {
		t.Errorf("Token = %q", result.Token)
	}
	if result.ExpiresIn != 86400 {
		t.Errorf("ExpiresIn = %d, want %d", result.ExpiresIn, 86400)
	}
	if result.User.ID != 1 || result.User.Email != "a@x.com" || result.User.Name != "Alice" {
		t.Errorf("User = %+v", result.User)
	}
	if result.User.CreatedAt != "2026-03-01T09:30:00.000Z" {
		t.Errorf("CreatedAt = %q", result.User.CreatedAt)
	}
	if len(recorder.attempts) != 1 || recorder.attempts[0] != "register:success" {
		t.Errorf("attempts = %v, want [register:success]", recorder.attempts)
	}
}

func TestService_Register_ExistingEmail(t *testing.T) {
	createCalled := false
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 5, Email: email}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}
	hasher := &mockHasher{}
	svc := NewService(repo, hasher, &mockTokenIssuer{}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "A", Password: "password123"})
	assertAPIErrorCode(t, err, model.ErrCodeConflict, MessageDuplicateEmail)

	if createCalled {
		t.Error("Create must not be called for an existing email")
	}
}

func TestService_Register_UniqueViolationRace(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	recorder := &mockAuthRecorder{}
	tokens := &mockTokenIssuer{}
	svc := NewService(repo, &mockHasher{}, tokens, recorder)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "A", Password: "password123"})
	assertAPIErrorCode(t, err, model.ErrCodeConflict, MessageDuplicateEmail)

	if len(tokens.issued) != 0 {
		t.Errorf("issued = %v, want no token", tokens.issued)
	}
	if len(recorder.attempts) != 1 || recorder.attempts[0] != "register:conflict" {
		t.Errorf("attempts = %v, want [register:conflict]", recorder.attempts)
	}
}

func TestService_Register_Errors(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name    string
		repo    *mockUserRepo
		hasher  *mockHasher
		tokens  *mockTokenIssuer
		wantErr error
	}{
		{
			name: "lookup failure",
			repo: &mockUserRepo{findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
				return nil, storeErr
			}},
			hasher:  &mockHasher{},
			tokens:  &mockTokenIssuer{},
			wantErr: storeErr,
		},
		{
			name:    "hash failure",
			repo:    &mockUserRepo{},
			hasher:  &mockHasher{hashErr: bcrypt.ErrPasswordTooLong},
			tokens:  &mockTokenIssuer{},
			wantErr: bcrypt.ErrPasswordTooLong,
		},
		{
			name: "insert failure",
			repo: &mockUserRepo{createFn: func(ctx context.Context, user *model.User) error {
				return storeErr
			}},
			hasher:  &mockHasher{},
			tokens:  &mockTokenIssuer{},
			wantErr: storeErr,
		},
		{
			name:    "token failure",
			repo:    &mockUserRepo{},
			hasher:  &mockHasher{},
			tokens:  &mockTokenIssuer{issueErr: storeErr},
			wantErr: storeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, tt.hasher, tt.tokens, nil)
			_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "A", Password: "password123"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want wrapping %v", err, tt.wantErr)
			}
			var apiErr *model.APIError
			if errors.As(err, &apiErr) {
				t.Errorf("internal failure must not be an APIError, got %v", apiErr)
			}
		})
	}
}

// --- Login ---

func TestService_Login_Success(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 3, Email: email, Name: "Alice", PasswordHash: "hashed:password123",
				CreatedAt: testTime, UpdatedAt: testTime}, nil
		},
	}
	recorder := &mockAuthRecorder{}
	svc := NewService(repo, &mockHasher{}, &mockTokenIssuer{}, recorder)

	result, err := svc.Login(context.Background(), "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != 3 {
		t.Errorf("User.ID = %d, want %d", result.User.ID, 3)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if len(recorder.attempts) != 1 || recorder.attempts[0] != "login:success" {
		t.Errorf("attempts = %v, want [login:success]", recorder.attempts)
	}
}

// TestService_Login_UniformFailure はユーザー不在とパスワード不一致が区別できないことを検証する。
func TestService_Login_UniformFailure(t *testing.T) {
	known := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 3, Email: email, PasswordHash: "hashed:password123"}, nil
		},
	}
	unknown := &mockUserRepo{}

	_, wrongPassword := NewService(known, &mockHasher{}, &mockTokenIssuer{}, nil).
		Login(context.Background(), "a@x.com", "wrong-password")
	_, noUser := NewService(unknown, &mockHasher{}, &mockTokenIssuer{}, nil).
		Login(context.Background(), "nobody@x.com", "password123")

	assertAPIErrorCode(t, wrongPassword, model.ErrCodeAuthentication, MessageInvalidCredentials)
	assertAPIErrorCode(t, noUser, model.ErrCodeAuthentication, MessageInvalidCredentials)

	if wrongPassword.Error() != noUser.Error() {
		t.Errorf("errors differ: %q vs %q", wrongPassword.Error(), noUser.Error())
	}
}

func TestService_Login_UnknownEmailStillComparesHash(t *testing.T) {
	hasher := &mockHasher{}
	tokens := &mockTokenIssuer{}
	svc := NewService(&mockUserRepo{}, hasher, tokens, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), "nobody@x.com", "password123"); err == nil {
			t.Fatal("expected error")
		}
	}

	if len(hasher.verifyCalls) != 2 {
		t.Fatalf("Verify calls = %d, want %d", len(hasher.verifyCalls), 2)
	}
	if hasher.verifyCalls[0] == "" {
		t.Error("dummy hash must not be empty")
	}
	if hasher.verifyCalls[0] != hasher.verifyCalls[1] {
		t.Error("dummy hash should be generated once and reused")
	}
	if len(tokens.issued) != 0 {
		t.Errorf("issued = %v, want no token", tokens.issued)
	}
}

func TestService_Login_LookupFailure(t *testing.T) {
	storeErr := errors.New("timeout")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, storeErr
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokenIssuer{}, nil)

	if _, err := svc.Login(context.Background(), "a@x.com", "password123"); !errors.Is(err, storeErr) {
		t.Errorf("Login() error = %v, want wrapping %v", err, storeErr)
	}
}

// TestService_RegisterThenLogin は実際のbcryptとトークンコーデックで登録からログインまでを検証する。
func TestService_RegisterThenLogin(t *testing.T) {
	users := map[string]*model.User{}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return users[email], nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = int64(len(users) + 1)
			user.CreatedAt = testTime
			user.UpdatedAt = testTime
			users[user.Email] = user
			return nil
		},
	}
	codec, err := auth.NewTokenCodec(auth.TokenConfig{Secret: "test-secret", ExpiresIn: "1h"})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	svc := NewService(repo, auth.NewBcryptHasher(bcrypt.MinCost), codec, nil)

	registered, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Name: "Alice", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if users["a@x.com"].PasswordHash == "password123" {
		t.Fatal("password must not be stored in plaintext")
	}

	loggedIn, err := svc.Login(context.Background(), "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want %d", loggedIn.ExpiresIn, 3600)
	}

	claims, err := codec.Verify(loggedIn.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Errorf("claims.UserID = %d, want %d", claims.UserID, registered.User.ID)
	}

	if _, err := svc.Login(context.Background(), "a@x.com", "password124"); err == nil {
		t.Error("expected error for wrong password")
	}
}

// --- Get / List ---

func TestService_Get(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id == 1 {
				return &model.User{ID: 1, Email: "a@x.com", Name: "Alice", PasswordHash: "secret"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokenIssuer{}, nil)

	identity, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if identity.Name != "Alice" {
		t.Errorf("Name = %q, want %q", identity.Name, "Alice")
	}

	_, err = svc.Get(context.Background(), 2)
	assertAPIErrorCode(t, err, model.ErrCodeNotFound, MessageUserNotFound)
}

func TestService_List(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: 2, Email: "b@x.com", Name: "Bob"},
				{ID: 1, Email: "a@x.com", Name: "Alice"},
			}, nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokenIssuer{}, nil)

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != 2 || users[1].ID != 1 {
		t.Errorf("users = %+v", users)
	}
}

func TestService_List_Empty(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockHasher{}, &mockTokenIssuer{}, nil)

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("users = %v, want empty non-nil slice", users)
	}
}
