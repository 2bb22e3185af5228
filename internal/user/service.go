// Package user はユーザー登録・ログイン・ユーザー一覧のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/shortpost/internal/auth"
	"github.com/hitoshi/shortpost/internal/model"
	"github.com/hitoshi/shortpost/internal/repository"
)

const (
	MessageDuplicateEmail     = "User with this email already exists"
	MessageInvalidCredentials = "Invalid credentials"
	MessageUserNotFound       = "User not found"
)

// PasswordHasher はパスワードハッシュの生成と照合インターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer はベアラートークンの発行インターフェース。
type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
	ExpiresInSeconds() int64
}

// AuthRecorder は登録・ログイン試行をメトリクスとして記録する。
type AuthRecorder interface {
	RecordAuthAttempt(action, result string)
}

// RegisterInput は登録リクエストの検証済み入力。
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// AuthResult は登録・ログイン成功時の応答。
type AuthResult struct {
	Token     string         `json:"token"`
	User      *auth.Identity `json:"user"`
	ExpiresIn int64          `json:"expiresIn"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder AuthRecorder

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnil可。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	recorder AuthRecorder,
) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
	}
}

// Register はユーザーを作成し、トークンを発行する。
// 同じメールアドレスのユーザーが既に存在する場合は競合エラーを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		s.record("register", "conflict")
		return nil, model.NewConflictError(MessageDuplicateEmail)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	u := &model.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		// 事前確認と作成の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.record("register", "conflict")
			return nil, model.NewConflictError(MessageDuplicateEmail)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	result, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.record("register", "success")
	slog.Info("user registered",
		slog.Int64("user_id", u.ID),
	)
	return result, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// ユーザー不在とパスワード不一致は区別せず同じ認証エラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if u == nil {
		// 応答時間からユーザーの存在が推測されないよう、ダミーハッシュと照合する
		s.hasher.Verify(password, s.dummyPasswordHash())
		s.record("login", "failure")
		return nil, model.NewAuthenticationError(MessageInvalidCredentials)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		s.record("login", "failure")
		return nil, model.NewAuthenticationError(MessageInvalidCredentials)
	}

	result, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.record("login", "success")
	slog.Info("user logged in",
		slog.Int64("user_id", u.ID),
	)
	return result, nil
}

// Get は指定IDのユーザーの公開情報を返す。
func (s *Service) Get(ctx context.Context, id int64) (*auth.Identity, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewNotFoundError(MessageUserNotFound)
	}
	return auth.NewIdentity(u), nil
}

// List は全ユーザーの公開情報を作成日時の新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*auth.Identity, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	identities := make([]*auth.Identity, 0, len(users))
	for _, u := range users {
		identities = append(identities, auth.NewIdentity(u))
	}
	return identities, nil
}

func (s *Service) issue(u *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}
	return &AuthResult{
		Token:     token,
		User:      auth.NewIdentity(u),
		ExpiresIn: s.tokens.ExpiresInSeconds(),
	}, nil
}

// dummyPasswordHash は照合専用のハッシュを初回呼び出し時に生成する。
func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("shortpost-dummy-password")
		if err != nil {
			slog.Error("dummy hash generation failed", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) record(action, result string) {
	if s.recorder != nil {
		s.recorder.RecordAuthAttempt(action, result)
	}
}
