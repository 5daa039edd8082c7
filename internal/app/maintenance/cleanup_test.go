package maintenance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/capitalcompass/tradedesk/internal/auth"
	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	"github.com/capitalcompass/tradedesk/internal/services"
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

func TestRunOncePurgesStaleState(t *testing.T) {
	db := testDB(t)

	current := time.Now()
	clock := func() time.Time { return current }

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{TokenTTL: time.Hour, Clock: clock})
	require.NoError(t, err)
	activity, err := services.NewActivityService(db)
	require.NoError(t, err)

	user := &models.User{
		Email:        "alex@example.com",
		PasswordHash: "x",
		Name:         "Alex",
		Role:         models.RoleClient,
		State:        models.UserStateActive,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(user).Error)

	_, err = sessions.Create(context.Background(), user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, activity.Record(context.Background(), services.ActivityEntry{Action: "auth.login"}))

	// Stamp an already expired reset token.
	expired := current.Add(-time.Hour)
	require.NoError(t, db.Model(user).Updates(map[string]any{
		"reset_token":            "stale-token",
		"reset_token_expires_at": expired,
	}).Error)

	// Age everything past the retention horizon.
	current = current.Add(2 * time.Hour)
	require.NoError(t, db.Model(&models.ActivityLog{}).
		Where("1 = 1").
		Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	cleaner := NewCleaner(db, sessions, activity,
		WithNow(clock),
		WithActivityRetentionDays(90),
	)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount, activityCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&activityCount).Error)
	require.Zero(t, sessionCount)
	require.Zero(t, activityCount)

	var refreshed models.User
	require.NoError(t, db.Where("id = ?", user.ID).Take(&refreshed).Error)
	require.Empty(t, refreshed.ResetToken)
	require.Nil(t, refreshed.ResetTokenExpiresAt)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testDB(t)

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)
	activity, err := services.NewActivityService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, sessions, activity, WithSessionSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}
