package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

func TestReportSnapshotCreatesThenOverwrites(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	createAccountName(t, db, "GoldRunner", models.NameStateActive)

	first, err := svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name:       "GoldRunner",
		AccountNumber: "100200",
		Balance:       5000,
		Equity:        5100,
		Margin:        120,
		FreeMargin:    4980,
		Leverage:      100,
	})
	require.NoError(t, err)

	second, err := svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name:       "GoldRunner",
		AccountNumber: "100200",
		Balance:       4800,
		Equity:        4750,
		Margin:        200,
		FreeMargin:    4550,
		Leverage:      200,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var rows []models.AccountSnapshot
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, 4800.0, rows[0].Balance)
	require.Equal(t, 4750.0, rows[0].Equity)
	require.Equal(t, 200, rows[0].Leverage)
}

func TestReportSnapshotSeparateRowsPerAccountNumber(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	createAccountName(t, db, "GoldRunner", models.NameStateActive)

	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name: "GoldRunner", AccountNumber: "100200", Balance: 100,
	})
	require.NoError(t, err)
	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name: "GoldRunner", AccountNumber: "100201", Balance: 200,
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.AccountSnapshot{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestReportSnapshotRejectsUnknownOwner(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name: "NoSuchName", AccountNumber: "100200",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.AccountSnapshot{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestReportSnapshotRejectsInactiveOwner(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	createAccountName(t, db, "Paused", models.NameStateInactive)

	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name: "Paused", AccountNumber: "100200",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.StatusCode)
	require.Contains(t, appErr.Message, "inactive")

	var count int64
	require.NoError(t, db.Model(&models.AccountSnapshot{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestReportSnapshotValidatesInput(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{MT5Name: "  "})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestRegisterNameConflict(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	_, err = svc.RegisterName(context.Background(), RegisterNameInput{
		MT5Name: "GoldRunner", OwnerName: "Alex",
	})
	require.NoError(t, err)

	_, err = svc.RegisterName(context.Background(), RegisterNameInput{
		MT5Name: "GoldRunner", OwnerName: "Sam",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestSetNameStateStopsReports(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	name := createAccountName(t, db, "GoldRunner", models.NameStateActive)
	require.NoError(t, svc.SetNameState(context.Background(), name.ID, models.NameStateInactive))

	_, err = svc.ReportSnapshot(context.Background(), SnapshotInput{
		MT5Name: "GoldRunner", AccountNumber: "100200",
	})
	require.Error(t, err)
}

func TestListSnapshots(t *testing.T) {
	db := testDB(t)
	svc, err := NewAccountService(db, nil)
	require.NoError(t, err)

	createAccountName(t, db, "GoldRunner", models.NameStateActive)
	for _, number := range []string{"100200", "100201", "100202"} {
		_, err := svc.ReportSnapshot(context.Background(), SnapshotInput{
			MT5Name: "GoldRunner", AccountNumber: number,
		})
		require.NoError(t, err)
	}

	snapshots, err := svc.ListSnapshots(context.Background(), "GoldRunner")
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
}
