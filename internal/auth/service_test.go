package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func testAuthService(t *testing.T, db *gorm.DB, cfg Config) *AuthService {
	t.Helper()

	sessions, err := NewSessionService(db, SessionConfig{Clock: cfg.Clock})
	require.NoError(t, err)
	svc, err := NewAuthService(db, sessions, nil, nil, cfg)
	require.NoError(t, err)
	return svc
}

const testPassword = "Str0ng!pass"

func registerUser(t *testing.T, svc *AuthService, email string) *models.SanitizedUser {
	t.Helper()

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: testPassword,
		Name:     "Alex Trader",
		MT5Name:  "alex-" + email,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterCreatesUserAndAccountName(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})

	user := registerUser(t, svc, "alex@example.com")
	require.Equal(t, "alex@example.com", user.Email)
	require.Equal(t, models.RoleClient, user.Role)
	require.Equal(t, models.UserStateActive, user.State)

	var name models.AccountName
	require.NoError(t, db.Where("mt5_name = ?", "alex-alex@example.com").Take(&name).Error)
	require.NotNil(t, name.UserID)
	require.Equal(t, user.ID, *name.UserID)
	require.Equal(t, models.NameStateActive, name.State)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})

	registerUser(t, svc, "alex@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ALEX@example.com",
		Password: testPassword,
		Name:     "Imposter",
		MT5Name:  "imposter",
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.EqualValues(t, 1, users)

	// The failed attempt must not leave an orphaned registration either.
	var names int64
	require.NoError(t, db.Model(&models.AccountName{}).
		Where("mt5_name = ?", "imposter").Count(&names).Error)
	require.Zero(t, names)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})

	cases := []RegisterInput{
		{Email: "not-an-email", Password: testPassword, Name: "A"},
		{Email: "alex@example.com", Password: "short", Name: "A"},
		{Email: "alex@example.com", Password: "alllowercase1!", Name: "A"},
		{Email: "", Password: testPassword, Name: "A"},
		{Email: "alex@example.com", Password: testPassword, Name: ""},
	}
	for _, input := range cases {
		_, err := svc.Register(context.Background(), input)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr, "input %+v", input)
		require.Equal(t, 400, appErr.StatusCode, "input %+v", input)
	}
}

func TestLoginSuccessMintsSession(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})
	registerUser(t, svc, "alex@example.com")

	result, err := svc.Login(context.Background(), "Alex@Example.com", testPassword, SessionMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Len(t, result.Token, 128) // 64 random bytes hex encoded
	require.True(t, result.ExpiresAt.After(time.Now()))

	user, err := svc.sessions.Verify(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, "alex@example.com", user.Email)
	require.NotNil(t, user.LastLoginAt)
}

func TestLoginUnknownEmail(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})

	_, err := svc.Login(context.Background(), "ghost@example.com", testPassword, SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginLocksAfterThreshold(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})
	registerUser(t, svc, "alex@example.com")

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "alex@example.com", "Wr0ng!pass", SessionMetadata{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "attempt %d", i+1)
	}

	// The fifth failure trips the lock.
	_, err := svc.Login(context.Background(), "alex@example.com", "Wr0ng!pass", SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)

	// Correct credentials no longer help.
	_, err = svc.Login(context.Background(), "alex@example.com", testPassword, SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)
	require.True(t, user.IsLocked)
	require.Equal(t, 5, user.FailedLoginAttempts)
}

func TestLoginSuccessResetsFailedCounter(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})
	registerUser(t, svc, "alex@example.com")

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "alex@example.com", "Wr0ng!pass", SessionMetadata{})
		require.Error(t, err)
	}

	_, err := svc.Login(context.Background(), "alex@example.com", testPassword, SessionMetadata{})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)
	require.Zero(t, user.FailedLoginAttempts)
	require.False(t, user.IsLocked)

	// The counter starts from scratch after a success.
	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), "alex@example.com", "Wr0ng!pass", SessionMetadata{})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
}

func TestLoginPendingVerificationRejected(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{VerificationRequired: true})
	registerUser(t, svc, "alex@example.com")

	_, err := svc.Login(context.Background(), "alex@example.com", testPassword, SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrAccountNotActive)
}

func TestVerifyEmailActivatesAccount(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{VerificationRequired: true})
	registerUser(t, svc, "alex@example.com")

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)
	require.Equal(t, models.UserStatePending, user.State)
	require.NotEmpty(t, user.VerificationToken)

	verified, err := svc.VerifyEmail(context.Background(), user.VerificationToken)
	require.NoError(t, err)
	require.Equal(t, models.UserStateActive, verified.State)
	require.True(t, verified.IsVerified)

	// The token is consumed; replaying it finds nothing.
	_, err = svc.VerifyEmail(context.Background(), user.VerificationToken)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.StatusCode)

	_, err = svc.Login(context.Background(), "alex@example.com", testPassword, SessionMetadata{})
	require.NoError(t, err)
}

func TestVerifyEmailAlreadyVerified(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{VerificationRequired: true})
	registerUser(t, svc, "alex@example.com")

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)

	// Support can mark an account verified while the token is still stamped.
	require.NoError(t, db.Model(&user).Update("is_verified", true).Error)

	_, err := svc.VerifyEmail(context.Background(), user.VerificationToken)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestRequestPasswordResetIsSilentForUnknownEmail(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
}

func TestResetPasswordReplacesCredentialAndUnlocks(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})
	registerUser(t, svc, "alex@example.com")

	// Lock the account first.
	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "alex@example.com", "Wr0ng!pass", SessionMetadata{})
	}

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alex@example.com"))

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)
	require.NotEmpty(t, user.ResetToken)
	require.NotNil(t, user.ResetTokenExpiresAt)

	const newPassword = "Fr3sh!secret"
	require.NoError(t, svc.ResetPassword(context.Background(), user.ResetToken, newPassword))

	// Old credential is gone, new one works, lock is cleared.
	_, err := svc.Login(context.Background(), "alex@example.com", testPassword, SessionMetadata{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "alex@example.com", newPassword, SessionMetadata{})
	require.NoError(t, err)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	db := testDB(t)

	current := time.Now()
	clock := func() time.Time { return current }
	svc := testAuthService(t, db, Config{Clock: clock, ResetTokenTTL: time.Hour})
	registerUser(t, svc, "alex@example.com")

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alex@example.com"))

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)

	current = current.Add(2 * time.Hour)

	err := svc.ResetPassword(context.Background(), user.ResetToken, "Fr3sh!secret")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.StatusCode)
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	db := testDB(t)
	svc := testAuthService(t, db, Config{})
	registerUser(t, svc, "alex@example.com")

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alex@example.com"))

	var user models.User
	require.NoError(t, db.Where("email = ?", "alex@example.com").Take(&user).Error)

	err := svc.ResetPassword(context.Background(), user.ResetToken, "weak")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}
