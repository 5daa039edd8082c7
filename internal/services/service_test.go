package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
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

func createAccountName(t *testing.T, db *gorm.DB, mt5Name, state string) *models.AccountName {
	t.Helper()

	name := &models.AccountName{
		MT5Name:   mt5Name,
		OwnerName: "Test Owner",
		State:     state,
	}
	require.NoError(t, db.Create(name).Error)
	return name
}

func TestActivityRecordAndList(t *testing.T) {
	db := testDB(t)
	svc, err := NewActivityService(db)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(context.Background(), ActivityEntry{
			Action:  "auth.login",
			Details: map[string]any{"attempt": i},
		}))
	}
	require.NoError(t, svc.Record(context.Background(), ActivityEntry{
		Action: "account.snapshot_reported",
	}))

	logs, total, err := svc.List(context.Background(), ActivityListOptions{
		Page:     1,
		PageSize: 10,
		Filters:  ActivityFilters{Action: "auth.login"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, logs, 3)
}
