package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// IDGenerator はrefresh tokenの主キー生成を差し替えられるようにする
type IDGenerator interface {
	NewID() string
}

type AuthConfig struct {
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	//ロックまでの連続失敗回数とロック時間
	MaxLoginFailures int
	LockoutWindow    time.Duration

	BcryptCost int
}

type AuthUsecase struct {
	userRepo     repo.UserRepository
	rtRepo       repo.RefreshTokenRepository
	activityRepo repo.ActivityLogRepository
	idGen        IDGenerator
	clock        Clock
	cfg          AuthConfig
}

func NewAuthUsecase(
	userRepo repo.UserRepository,
	rtRepo repo.RefreshTokenRepository,
	activityRepo repo.ActivityLogRepository,
	idGen IDGenerator,
	clock Clock,
	cfg AuthConfig,
) *AuthUsecase {
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = 12
	}
	if cfg.MaxLoginFailures <= 0 {
		cfg.MaxLoginFailures = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	return &AuthUsecase{
		userRepo:     userRepo,
		rtRepo:       rtRepo,
		activityRepo: activityRepo,
		idGen:        idGen,
		clock:        clock,
		cfg:          cfg,
	}
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type TokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginOutput struct {
	User  UserDTO  `json:"user"`
	Token TokenDTO `json:"token"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") || len(email) > 255 {
		return UserDTO{}, NewValidationError("invalid email")
	}
	if len(in.Password) < 8 || len(in.Password) > 72 {
		return UserDTO{}, NewValidationError("password must be 8-72 chars")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cfg.BcryptCost)
	if err != nil {
		return UserDTO{}, NewInternalError()
	}

	now := u.clock.Now()
	id, err := u.userRepo.Create(ctx, model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, repo.ErrConflict) {
		return UserDTO{}, NewInvalidStateError("email already registered")
	}
	if err != nil {
		return UserDTO{}, NewInternalError()
	}

	return UserDTO{ID: id, Email: email, Role: string(model.RoleUser), IsActive: true}, nil
}

// Login はロックと失敗カウンタを見る。
// 存在しないメールも間違ったパスワードも同じ401を返す。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewValidationError("email and password are required")
	}

	usr, err := u.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(401, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewInternalError()
	}

	now := u.clock.Now()

	if !usr.IsActive {
		return LoginOutput{}, NewForbiddenError("account disabled")
	}
	if usr.IsLocked(now) {
		u.logActivity(ctx, usr.ID, model.ActivityLoginFailed, in)
		return LoginOutput{}, NewForbiddenError("account locked")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(in.Password)); err != nil {
		failed := usr.FailedLoginCount + 1
		var lockedUntil *time.Time
		if failed >= u.cfg.MaxLoginFailures {
			t := now.Add(u.cfg.LockoutWindow)
			lockedUntil = &t
			//ロック後はカウンタを戻して次の窓で再カウント
			failed = 0
		}
		_ = u.userRepo.UpdateLockState(ctx, usr.ID, failed, lockedUntil)

		if lockedUntil != nil {
			u.logActivity(ctx, usr.ID, model.ActivityAccountLocked, in)
			return LoginOutput{}, NewForbiddenError("account locked")
		}
		u.logActivity(ctx, usr.ID, model.ActivityLoginFailed, in)
		return LoginOutput{}, NewHTTPError(401, "invalid credentials")
	}

	if err := u.userRepo.RecordLogin(ctx, usr.ID, now); err != nil {
		return LoginOutput{}, NewInternalError()
	}
	u.logActivity(ctx, usr.ID, model.ActivityLoginSuccess, in)

	token, err := u.issueTokens(ctx, usr, in.UserAgent, now)
	if err != nil {
		return LoginOutput{}, err
	}

	return LoginOutput{
		User: UserDTO{
			ID:       usr.ID,
			Email:    usr.Email,
			Role:     string(usr.Role),
			IsActive: usr.IsActive,
		},
		Token: token,
	}, nil
}

type RefreshInput struct {
	RefreshToken string
	UserAgent    string
}

// Refresh はrefresh tokenを使い捨てでローテーションする。
// 使用済みトークンの再提示は盗難とみなして全トークンを無効化する。
func (u *AuthUsecase) Refresh(ctx context.Context, in RefreshInput) (LoginOutput, error) {
	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return LoginOutput{}, NewValidationError("refresh_token is required")
	}

	now := u.clock.Now()

	t, err := u.rtRepo.FindByHash(ctx, hashRefreshToken(raw))
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(401, "unauthorized")
	}
	if err != nil {
		return LoginOutput{}, NewInternalError()
	}

	if t.RevokedAt != nil || now.After(t.ExpiresAt) {
		return LoginOutput{}, NewHTTPError(401, "unauthorized")
	}
	if t.UsedAt != nil {
		//再利用されてしまっている
		_ = u.userRepo.BumpTokenVersion(ctx, t.UserID)
		_ = u.rtRepo.RevokeAllForUser(ctx, t.UserID, now)
		return LoginOutput{}, NewHTTPError(401, "unauthorized")
	}

	usr, err := u.userRepo.FindByID(ctx, t.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(401, "unauthorized")
	}
	if err != nil {
		return LoginOutput{}, NewInternalError()
	}
	if !usr.IsActive {
		return LoginOutput{}, NewForbiddenError("account disabled")
	}

	if err := u.rtRepo.MarkUsed(ctx, t.ID, now); err != nil {
		return LoginOutput{}, NewInternalError()
	}

	token, err := u.issueTokens(ctx, usr, in.UserAgent, now)
	if err != nil {
		return LoginOutput{}, err
	}

	return LoginOutput{
		User: UserDTO{
			ID:       usr.ID,
			Email:    usr.Email,
			Role:     string(usr.Role),
			IsActive: usr.IsActive,
		},
		Token: token,
	}, nil
}

func (u *AuthUsecase) Logout(ctx context.Context, userID int64, ip, userAgent string) error {
	if userID <= 0 {
		return NewUnauthorizedError()
	}

	now := u.clock.Now()
	if err := u.rtRepo.RevokeAllForUser(ctx, userID, now); err != nil {
		return NewInternalError()
	}
	u.logActivity(ctx, userID, model.ActivityLogout, LoginInput{IP: ip, UserAgent: userAgent})
	return nil
}

// 自分の行動ログ
func (u *AuthUsecase) ListMyActivity(ctx context.Context, userID int64, page, limit int) ([]model.ActivityLog, int64, error) {
	if userID <= 0 {
		return nil, 0, NewUnauthorizedError()
	}
	if page < 1 {
		return nil, 0, NewValidationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return nil, 0, NewValidationError("invalid limit")
	}

	items, total, err := u.activityRepo.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, NewInternalError()
	}
	if items == nil {
		items = []model.ActivityLog{}
	}
	return items, total, nil
}

func (u *AuthUsecase) issueTokens(ctx context.Context, usr model.User, userAgent string, now time.Time) (TokenDTO, error) {
	expiresAt := now.Add(u.cfg.AccessTTL)

	claims := jwt.MapClaims{
		"sub":  usr.ID,
		"role": string(usr.Role),
		"tv":   usr.TokenVersion,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(u.cfg.JWTSecret)
	if err != nil {
		return TokenDTO{}, NewInternalError()
	}

	rawRefresh, err := newRefreshTokenValue()
	if err != nil {
		return TokenDTO{}, NewInternalError()
	}

	if err := u.rtRepo.Create(ctx, model.RefreshToken{
		ID:        u.idGen.NewID(),
		UserID:    usr.ID,
		TokenHash: hashRefreshToken(rawRefresh),
		UserAgent: userAgent,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
		CreatedAt: now,
	}); err != nil {
		return TokenDTO{}, NewInternalError()
	}

	return TokenDTO{
		AccessToken:  signed,
		ExpiresIn:    int(u.cfg.AccessTTL.Seconds()),
		RefreshToken: rawRefresh,
	}, nil
}

func (u *AuthUsecase) logActivity(ctx context.Context, userID int64, action model.ActivityAction, in LoginInput) {
	//行動ログは失敗しても本処理を止めない
	_ = u.activityRepo.Create(ctx, model.ActivityLog{
		UserID:    userID,
		Action:    action,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		CreatedAt: u.clock.Now(),
	})
}

func newRefreshTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
