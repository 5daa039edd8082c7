package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserBeforeCreateAssignsID(t *testing.T) {
	u := &User{}
	require.NoError(t, u.BeforeCreate(nil))
	require.NotEmpty(t, u.ID)

	fixed := &User{ID: "existing"}
	require.NoError(t, fixed.BeforeCreate(nil))
	require.Equal(t, "existing", fixed.ID)
}

func TestSanitizedOmitsCredentials(t *testing.T) {
	u := &User{
		ID:                "u-1",
		Email:             "client@example.com",
		PasswordHash:      "$2a$12$secret",
		VerificationToken: "tok",
		ResetToken:        "tok2",
		Role:              RoleClient,
		State:             UserStateActive,
	}

	s := u.Sanitized()
	require.Equal(t, u.Email, s.Email)
	require.Equal(t, RoleClient, s.Role)
	require.Equal(t, UserStateActive, s.State)
}

func TestNewsStatusDayStatus(t *testing.T) {
	n := &NewsStatus{
		Currency:        "USD",
		MondayStatus:    "disabled",
		TuesdayStatus:   "enabled",
		WednesdayStatus: "enabled",
		ThursdayStatus:  "disabled",
		FridayStatus:    "enabled",
	}

	require.Equal(t, "disabled", n.DayStatus(1))
	require.Equal(t, "disabled", n.DayStatus(4))
	require.Equal(t, "enabled", n.DayStatus(5))
	require.Equal(t, PairStateEnabled, n.DayStatus(6))
	require.Equal(t, PairStateEnabled, n.DayStatus(0))
}
