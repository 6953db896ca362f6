package repository

import (
	"context"
	"testing"
	"time"

	"harvestlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoulRepository_Integration(t *testing.T) {
	repo := NewSoulRepository(testDB)
	ctx := context.Background()

	ev1 := createTestUser(t, "ev1")
	ev2 := createTestUser(t, "ev2")
	church := createTestChurch(t)

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	seed := []models.Soul{
		{EvangelistID: ev1.ID, ChurchID: church.ID, Name: "Ama Mensah", WonOn: weekAgo},
		{EvangelistID: ev1.ID, ChurchID: church.ID, Name: "Kofi Boateng", WonOn: yesterday},
		{EvangelistID: ev2.ID, ChurchID: church.ID, Name: "Yaw Owusu", WonOn: yesterday},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	t.Run("List scoped to evangelist", func(t *testing.T) {
		souls, err := repo.List(ctx, SoulFilter{EvangelistID: ev1.ID})
		assert.NoError(t, err)
		assert.Len(t, souls, 2)
		// Most recent first
		assert.Equal(t, "Kofi Boateng", souls[0].Name)
	})

	t.Run("List filtered by date range", func(t *testing.T) {
		souls, err := repo.List(ctx, SoulFilter{
			ChurchID: church.ID,
			From:     yesterday.Add(-time.Hour),
		})
		assert.NoError(t, err)
		assert.Len(t, souls, 2)
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.Count(ctx, SoulFilter{ChurchID: church.ID})
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("Leaderboard orders by count", func(t *testing.T) {
		rows, err := repo.Leaderboard(ctx, church.ID, nil,
			weekAgo.Add(-time.Hour), time.Now().UTC())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, ev1.ID, rows[0].EvangelistID)
		assert.Equal(t, int64(2), rows[0].SoulsCount)
		assert.Equal(t, int64(1), rows[1].SoulsCount)
	})

	t.Run("Update and Delete", func(t *testing.T) {
		soul, err := repo.GetByID(ctx, seed[0].ID)
		require.NoError(t, err)

		soul.Residence = "Kumasi"
		require.NoError(t, repo.Update(ctx, soul))

		got, err := repo.GetByID(ctx, soul.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kumasi", got.Residence)

		require.NoError(t, repo.Delete(ctx, soul.ID))
		_, err = repo.GetByID(ctx, soul.ID)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestMembershipRepository_Integration(t *testing.T) {
	repo := NewMembershipRepository(testDB)
	ctx := context.Background()

	user := createTestUser(t, "member")
	church := createTestChurch(t)

	t.Run("Upsert is idempotent per user church role", func(t *testing.T) {
		m := &models.Membership{
			UserID:   user.ID,
			ChurchID: church.ID,
			Role:     models.RoleEvangelist,
			Status:   models.MembershipActive,
		}
		require.NoError(t, upsertActiveMembership(testDB, m))
		require.NoError(t, upsertActiveMembership(testDB, &models.Membership{
			UserID:   user.ID,
			ChurchID: church.ID,
			Role:     models.RoleEvangelist,
			Status:   models.MembershipActive,
		}))

		var count int64
		testDB.Model(&models.Membership{}).
			Where("user_id = ? AND church_id = ? AND role = ?", user.ID, church.ID, models.RoleEvangelist).
			Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Disable hides membership from ActiveForUser", func(t *testing.T) {
		active, err := repo.ActiveForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)

		require.NoError(t, repo.Disable(ctx, user.ID, church.ID, models.RoleEvangelist))

		active, err = repo.ActiveForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, active)

		var m models.Membership
		require.NoError(t, testDB.
			Where("user_id = ? AND church_id = ?", user.ID, church.ID).
			First(&m).Error)
		assert.Equal(t, models.MembershipDisabled, m.Status)
	})

	t.Run("Disable unknown membership reports not found", func(t *testing.T) {
		err := repo.Disable(ctx, user.ID, 9999, models.RoleEvangelist)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})

	t.Run("Reapproval reactivates a disabled membership", func(t *testing.T) {
		require.NoError(t, upsertActiveMembership(testDB, &models.Membership{
			UserID:   user.ID,
			ChurchID: church.ID,
			Role:     models.RoleEvangelist,
			Status:   models.MembershipActive,
		}))

		active, err := repo.ActiveForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, models.MembershipActive, active[0].Status)
	})
}
