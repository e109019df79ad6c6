package usecase

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func newAuthUsecaseForTest() (*AuthUsecase, *userRepoMock, *refreshTokenRepoMock, *activityLogRepoMock) {
	users := &userRepoMock{}
	rts := &refreshTokenRepoMock{}
	acts := &activityLogRepoMock{}

	uc := NewAuthUsecase(users, rts, acts, &seqIDGen{}, testClock(), AuthConfig{
		JWTSecret:        []byte("test-secret"),
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       14 * 24 * time.Hour,
		MaxLoginFailures: 5,
		LockoutWindow:    15 * time.Minute,
		BcryptCost:       bcrypt.MinCost,
	})
	return uc, users, rts, acts
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(h)
}

func TestRegister_Validation(t *testing.T) {
	uc, _, _, _ := newAuthUsecaseForTest()

	cases := []RegisterInput{
		{Email: "", Password: "password123"},
		{Email: "not-an-email", Password: "password123"},
		{Email: "a@example.com", Password: "short"},
	}

	for _, in := range cases {
		_, err := uc.Register(context.Background(), in)
		he, ok := AsHTTPError(err)
		assert.True(t, ok, "input %+v", in)
		assert.Equal(t, 400, he.Status)
	}
}

func TestRegister_NormalizesEmailAndDefaultsRole(t *testing.T) {
	uc, users, _, _ := newAuthUsecaseForTest()

	users.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "hari@example.com" && u.Role == model.RoleUser && u.IsActive
	})).Return(int64(7), nil)

	out, err := uc.Register(context.Background(), RegisterInput{
		Email:    "  Hari@Example.COM ",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, "hari@example.com", out.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	uc, users, _, _ := newAuthUsecaseForTest()

	users.On("Create", mock.Anything, mock.Anything).Return(int64(0), repo.ErrConflict)

	_, err := uc.Register(context.Background(), RegisterInput{
		Email:    "hari@example.com",
		Password: "password123",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
}

func TestLogin_Success(t *testing.T) {
	uc, users, rts, acts := newAuthUsecaseForTest()
	clock := testClock()

	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", Role: model.RoleUser, IsActive: true,
		PasswordHash: hashPassword(t, "password123"),
	}, nil)
	users.On("RecordLogin", mock.Anything, int64(7), clock.Now()).Return(nil)
	acts.On("Create", mock.Anything, mock.MatchedBy(func(l model.ActivityLog) bool {
		return l.Action == model.ActivityLoginSuccess && l.UserID == 7
	})).Return(nil)
	rts.On("Create", mock.Anything, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.UserID == 7 && rt.TokenHash != ""
	})).Return(nil)

	out, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "password123",
		IP: "10.0.0.1", UserAgent: "test",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.User.ID)
	assert.NotEmpty(t, out.Token.AccessToken)
	assert.NotEmpty(t, out.Token.RefreshToken)
	//refresh tokenの平文はストアに入らない
	rts.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.TokenHash != out.Token.RefreshToken
	}))
}

func TestLogin_WrongPasswordIncrementsCounter(t *testing.T) {
	uc, users, _, acts := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", IsActive: true,
		PasswordHash:     hashPassword(t, "password123"),
		FailedLoginCount: 1,
	}, nil)
	users.On("UpdateLockState", mock.Anything, int64(7), 2, (*time.Time)(nil)).Return(nil)
	acts.On("Create", mock.Anything, mock.MatchedBy(func(l model.ActivityLog) bool {
		return l.Action == model.ActivityLoginFailed
	})).Return(nil)

	_, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "wrong",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
	users.AssertCalled(t, "UpdateLockState", mock.Anything, int64(7), 2, (*time.Time)(nil))
}

func TestLogin_FifthFailureLocksAccount(t *testing.T) {
	uc, users, _, acts := newAuthUsecaseForTest()
	clock := testClock()

	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", IsActive: true,
		PasswordHash:     hashPassword(t, "password123"),
		FailedLoginCount: 4,
	}, nil)
	until := clock.Now().Add(15 * time.Minute)
	users.On("UpdateLockState", mock.Anything, int64(7), 0, &until).Return(nil)
	acts.On("Create", mock.Anything, mock.MatchedBy(func(l model.ActivityLog) bool {
		return l.Action == model.ActivityAccountLocked
	})).Return(nil)

	_, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "wrong",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
	users.AssertCalled(t, "UpdateLockState", mock.Anything, int64(7), 0, &until)
}

func TestLogin_LockedAccountRejectsCorrectPassword(t *testing.T) {
	uc, users, _, acts := newAuthUsecaseForTest()
	clock := testClock()

	until := clock.Now().Add(10 * time.Minute)
	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", IsActive: true,
		PasswordHash: hashPassword(t, "password123"),
		LockedUntil:  &until,
	}, nil)
	acts.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "password123",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
	users.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_ExpiredLockAllowsLogin(t *testing.T) {
	uc, users, rts, acts := newAuthUsecaseForTest()
	clock := testClock()

	//ロック期限はもう過ぎている
	until := clock.Now().Add(-time.Minute)
	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", Role: model.RoleUser, IsActive: true,
		PasswordHash: hashPassword(t, "password123"),
		LockedUntil:  &until,
	}, nil)
	users.On("RecordLogin", mock.Anything, int64(7), clock.Now()).Return(nil)
	acts.On("Create", mock.Anything, mock.Anything).Return(nil)
	rts.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "password123",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, out.Token.AccessToken)
}

func TestLogin_UnknownEmailSameErrorAsWrongPassword(t *testing.T) {
	uc, users, _, _ := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, repo.ErrNotFound)

	_, err := uc.Login(context.Background(), LoginInput{
		Email: "ghost@example.com", Password: "whatever1",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
	assert.Equal(t, "invalid credentials", he.Message)
}

func TestLogin_InactiveAccount(t *testing.T) {
	uc, users, _, _ := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "hari@example.com").Return(model.User{
		ID: 7, Email: "hari@example.com", IsActive: false,
		PasswordHash: hashPassword(t, "password123"),
	}, nil)

	_, err := uc.Login(context.Background(), LoginInput{
		Email: "hari@example.com", Password: "password123",
	})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
}

func TestRefresh_RotatesToken(t *testing.T) {
	uc, users, rts, _ := newAuthUsecaseForTest()
	clock := testClock()

	rts.On("FindByHash", mock.Anything, hashRefreshToken("plain-token")).Return(model.RefreshToken{
		ID: "rt-1", UserID: 7,
		ExpiresAt: clock.Now().Add(time.Hour),
	}, nil)
	users.On("FindByID", mock.Anything, int64(7)).Return(model.User{
		ID: 7, Email: "hari@example.com", Role: model.RoleUser, IsActive: true,
	}, nil)
	rts.On("MarkUsed", mock.Anything, "rt-1", clock.Now()).Return(nil)
	rts.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := uc.Refresh(context.Background(), RefreshInput{RefreshToken: "plain-token"})

	assert.NoError(t, err)
	assert.NotEmpty(t, out.Token.RefreshToken)
	assert.NotEqual(t, "plain-token", out.Token.RefreshToken)
	rts.AssertCalled(t, "MarkUsed", mock.Anything, "rt-1", clock.Now())
}

func TestRefresh_ReuseRevokesEverything(t *testing.T) {
	uc, users, rts, _ := newAuthUsecaseForTest()
	clock := testClock()

	used := clock.Now().Add(-time.Minute)
	rts.On("FindByHash", mock.Anything, hashRefreshToken("stolen")).Return(model.RefreshToken{
		ID: "rt-1", UserID: 7,
		ExpiresAt: clock.Now().Add(time.Hour),
		UsedAt:    &used,
	}, nil)
	users.On("BumpTokenVersion", mock.Anything, int64(7)).Return(nil)
	rts.On("RevokeAllForUser", mock.Anything, int64(7), clock.Now()).Return(nil)

	_, err := uc.Refresh(context.Background(), RefreshInput{RefreshToken: "stolen"})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
	users.AssertCalled(t, "BumpTokenVersion", mock.Anything, int64(7))
	rts.AssertCalled(t, "RevokeAllForUser", mock.Anything, int64(7), clock.Now())
}

func TestRefresh_ExpiredToken(t *testing.T) {
	uc, _, rts, _ := newAuthUsecaseForTest()
	clock := testClock()

	rts.On("FindByHash", mock.Anything, hashRefreshToken("old")).Return(model.RefreshToken{
		ID: "rt-1", UserID: 7,
		ExpiresAt: clock.Now().Add(-time.Hour),
	}, nil)

	_, err := uc.Refresh(context.Background(), RefreshInput{RefreshToken: "old"})

	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	uc, _, rts, acts := newAuthUsecaseForTest()
	clock := testClock()

	rts.On("RevokeAllForUser", mock.Anything, int64(7), clock.Now()).Return(nil)
	acts.On("Create", mock.Anything, mock.MatchedBy(func(l model.ActivityLog) bool {
		return l.Action == model.ActivityLogout && l.UserID == 7
	})).Return(nil)

	err := uc.Logout(context.Background(), 7, "10.0.0.1", "test")

	assert.NoError(t, err)
	rts.AssertCalled(t, "RevokeAllForUser", mock.Anything, int64(7), clock.Now())
}
