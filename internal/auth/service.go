// Package auth はパスワード認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
)

// dummyPassword は未登録メールアドレス照合用ダイジェストの元になる値。
const dummyPassword = "fitlog-dummy-password"

// Recorder は認証イベントを記録するインターフェース。metrics.Collectorが実装する。
type Recorder interface {
	RecordSignup()
	RecordLoginFailure()
}

type noopRecorder struct{}

func (noopRecorder) RecordSignup()       {}
func (noopRecorder) RecordLoginFailure() {}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL     time.Duration // セッション有効期間
	StorageTimeout time.Duration // ストレージ呼び出し1回あたりのタイムアウト
	Recorder       Recorder      // nilの場合は記録しない
}

// SignupInput はユーザー登録の入力。
type SignupInput struct {
	Name           string
	Email          string
	Password       string
	Age            *int
	Height         *float64
	Weight         *float64
	Gender         string
	FitnessGoal    string
	DietPreference string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	config   ServiceConfig
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	sessions SessionStore,
	hasher PasswordHasher,
	config ServiceConfig,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.StorageTimeout <= 0 {
		config.StorageTimeout = 5 * time.Second
	}
	if config.Recorder == nil {
		config.Recorder = noopRecorder{}
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		config:   config,
		now:      time.Now,
	}
}

// Signup はユーザーを作成し、セッションを開始する。
// メールアドレスの重複はストレージの一意制約で検出し、Conflictとして返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, *model.Session, error) {
	if err := validateSignup(&in); err != nil {
		return nil, nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, model.NewServiceUnavailableError(err)
	}

	user := &model.User{
		ID:             uuid.New().String(),
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   digest,
		Age:            in.Age,
		Height:         in.Height,
		Weight:         in.Weight,
		Gender:         in.Gender,
		FitnessGoal:    in.FitnessGoal,
		DietPreference: in.DietPreference,
		CreatedAt:      s.now(),
	}

	sctx, cancel := s.storageContext(ctx)
	err = s.users.Create(sctx, user)
	cancel()
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, nil, model.NewUserExistsError()
	}
	if err != nil {
		return nil, nil, model.NewServiceUnavailableError(fmt.Errorf("failed to create user: %w", err))
	}

	session, err := s.StartSession(ctx, user.ID)
	if err != nil {
		// セッションを発行できないアカウントは残さない。同じメールアドレスで再試行できるようにする。
		dctx, dcancel := s.storageContext(context.WithoutCancel(ctx))
		derr := s.users.DeleteByID(dctx, user.ID)
		dcancel()
		if derr != nil {
			slog.Error("failed to roll back user after session failure",
				slog.String("user_id", user.ID),
				slog.String("error", derr.Error()),
			)
		}
		return nil, nil, err
	}

	s.config.Recorder.RecordSignup()
	slog.Info("new user created", slog.String("user_id", user.ID))
	return user, session, nil
}

// VerifyCredentials はメールアドレスとパスワードを照合する。
// 未登録メールアドレスとパスワード不一致は同一のAuthFailureを返す。
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("email", "email and password are required")
	}

	sctx, cancel := s.storageContext(ctx)
	user, err := s.users.FindByEmail(sctx, email)
	cancel()
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to find user: %w", err))
	}

	if user == nil {
		// 応答時間を揃えるためダミーのダイジェストを照合する
		_, _ = s.hasher.Verify(password, s.dummyDigest())
		s.config.Recorder.RecordLoginFailure()
		return nil, model.NewAuthFailureError()
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		slog.Error("stored password digest is unreadable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if !ok {
		s.config.Recorder.RecordLoginFailure()
		return nil, model.NewAuthFailureError()
	}

	return user, nil
}

// Login は資格情報を照合し、成功した場合のみセッションを開始する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.StartSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, session, nil
}

// StartSession はトークンを発行し、ユーザーIDとの対応を記録する。
func (s *Service) StartSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateSessionID()
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to generate session ID: %w", err))
	}

	now := s.now()
	session := &model.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: now.Add(s.config.SessionTTL),
		CreatedAt: now,
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.sessions.Create(sctx, session); err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to save session: %w", err))
	}

	return session, nil
}

// Resolve はトークンに対応するユーザーIDを返す。
// 対応がない・期限切れの場合はUnauthenticatedを返す。
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.NewUnauthenticatedError()
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	session, err := s.sessions.FindByID(sctx, token)
	if err != nil {
		return "", model.NewServiceUnavailableError(fmt.Errorf("failed to find session: %w", err))
	}
	if session == nil || session.Expired(s.now()) {
		return "", model.NewUnauthenticatedError()
	}

	return session.UserID, nil
}

// EndSession はセッションを破棄する。存在しないトークンでもエラーにしない。
func (s *Service) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.sessions.DeleteByID(sctx, token); err != nil {
		return model.NewServiceUnavailableError(fmt.Errorf("failed to delete session: %w", err))
	}

	slog.Info("user logged out")
	return nil
}

// CurrentUser は指定ユーザーのプロフィールを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	sctx, cancel := s.storageContext(ctx)
	defer cancel()

	user, err := s.users.FindByID(sctx, userID)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to find user: %w", err))
	}
	if user == nil {
		return nil, model.NewNotFoundError("user")
	}
	return user, nil
}

// SessionTTL はセッション有効期間を返す。Cookieの有効期限に使用する。
func (s *Service) SessionTTL() time.Duration {
	return s.config.SessionTTL
}

func (s *Service) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StorageTimeout)
}

func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("failed to compute dummy digest", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = digest
	})
	return s.dummyHash
}

func validateSignup(in *SignupInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" {
		return model.NewValidationError("name", "is required")
	}
	if in.Email == "" {
		return model.NewValidationError("email", "is required")
	}
	if !strings.Contains(in.Email, "@") {
		return model.NewValidationError("email", "must be a valid email address")
	}
	if in.Password == "" {
		return model.NewValidationError("password", "is required")
	}
	for _, err := range []error{
		model.CheckLength("name", in.Name, model.MaxNameLength),
		model.CheckLength("email", in.Email, model.MaxNameLength),
		model.CheckLength("password", in.Password, model.MaxPasswordLength),
		model.CheckLength("gender", in.Gender, model.MaxGenderLength),
		model.CheckLength("fitnessGoal", in.FitnessGoal, model.MaxNameLength),
		model.CheckLength("dietPreference", in.DietPreference, model.MaxNameLength),
	} {
		if err != nil {
			return err
		}
	}
	if in.Age != nil && *in.Age <= 0 {
		return model.NewValidationError("age", "must be positive")
	}
	if in.Age != nil {
		if err := model.CheckStoredInteger("age", *in.Age); err != nil {
			return err
		}
	}
	if in.Height != nil && *in.Height <= 0 {
		return model.NewValidationError("height", "must be positive")
	}
	if in.Weight != nil && *in.Weight <= 0 {
		return model.NewValidationError("weight", "must be positive")
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
