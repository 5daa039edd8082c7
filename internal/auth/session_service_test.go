package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

func createActiveUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Session Tester",
		Role:         models.RoleClient,
		State:        models.UserStateActive,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSessionCreateAndVerify(t *testing.T) {
	db := testDB(t)
	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	user := createActiveUser(t, db, "alex@example.com")

	session, err := svc.Create(context.Background(), user.ID, SessionMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.Len(t, session.Token, 128)
	require.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, time.Minute)

	got, err := svc.Verify(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestSessionVerifyUnknownToken(t *testing.T) {
	db := testDB(t)
	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), "deadbeef")
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)

	_, err = svc.Verify(context.Background(), "  ")
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestSessionVerifyExpiredTokenPurged(t *testing.T) {
	db := testDB(t)

	current := time.Now()
	svc, err := NewSessionService(db, SessionConfig{
		TokenTTL: time.Hour,
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)

	user := createActiveUser(t, db, "alex@example.com")
	session, err := svc.Create(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, err = svc.Verify(context.Background(), session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)

	// The expired row is swept, not just rejected.
	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSessionVerifyInactiveUser(t *testing.T) {
	db := testDB(t)
	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	user := createActiveUser(t, db, "alex@example.com")
	session, err := svc.Create(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("state", models.UserStateInactive).Error)

	_, err = svc.Verify(context.Background(), session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestSessionLogoutIdempotent(t *testing.T) {
	db := testDB(t)
	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	user := createActiveUser(t, db, "alex@example.com")
	session, err := svc.Create(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), session.Token))
	require.NoError(t, svc.Logout(context.Background(), session.Token))
	require.NoError(t, svc.Logout(context.Background(), "never-existed"))

	_, err = svc.Verify(context.Background(), session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestSessionCleanupLeavesLiveSessions(t *testing.T) {
	db := testDB(t)

	current := time.Now()
	svc, err := NewSessionService(db, SessionConfig{
		TokenTTL: time.Hour,
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)

	user := createActiveUser(t, db, "alex@example.com")

	stale, err := svc.Create(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(30 * time.Minute)
	live, err := svc.Create(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(45 * time.Minute) // stale expired, live still valid

	purged, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, err = svc.Verify(context.Background(), stale.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionInvalid)
	_, err = svc.Verify(context.Background(), live.Token)
	require.NoError(t, err)
}
