package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

func createTestNotification(t *testing.T, repo NotificationRepository, triggerID uint, profileID string) *entities.Notification {
	t.Helper()
	n := &entities.Notification{
		WorkspaceID: wsMain,
		TriggerID:   triggerID,
		ProfileID:   profileID,
		IsActive:    true,
		Meta: entities.NotificationMeta{
			Type:      "presence",
			Trigger:   entities.TriggerRef{ID: triggerID},
			CameraID:  "cam-1",
			ProfileID: profileID,
		},
	}
	require.NoError(t, repo.CreateNotification(t.Context(), n))
	return n
}

// backdate rewrites timestamp columns directly; the repository API never
// moves them backwards.
func backdate(t *testing.T, db *gorm.DB, id uint, columns map[string]any) {
	t.Helper()
	require.NoError(t, db.Model(&entities.Notification{}).Where("id = ?", id).Updates(columns).Error)
}

func TestNotificationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "profile-1")
	assert.NotZero(t, n.ID)
	assert.False(t, n.LastModified.IsZero(), "last_modified defaults to creation")

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "presence", got.Meta.Type)
	assert.Equal(t, "cam-1", got.Meta.CameraID)
	assert.Equal(t, "profile-1", got.ProfileID)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.DeactivatedAt)

	_, err = repo.GetNotification(ctx, 999)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationRepository_ActiveQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	alice1 := createTestNotification(t, repo, 1, "alice")
	alice2 := createTestNotification(t, repo, 1, "alice")
	createTestNotification(t, repo, 1, "bob")
	createTestNotification(t, repo, 2, "alice")

	_, err := repo.DeactivateByIDs(ctx, []uint{alice2.ID})
	require.NoError(t, err)

	byTrigger, err := repo.GetActiveByTrigger(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byTrigger, 2)

	byProfile, err := repo.GetActiveByProfile(ctx, 1, "alice")
	require.NoError(t, err)
	require.Len(t, byProfile, 1)
	assert.Equal(t, alice1.ID, byProfile[0].ID)
}

func TestNotificationRepository_DeactivateByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "alice")

	count, err := repo.DeactivateByIDs(ctx, []uint{n.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.DeactivatedAt)

	// Already inactive rows do not count again.
	count, err = repo.DeactivateByIDs(ctx, []uint{n.ID})
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.DeactivateByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationRepository_RefreshLastModified(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "alice")
	backdate(t, db, n.ID, map[string]any{"last_modified": time.Now().Add(-time.Hour)})

	now := time.Now()
	count, err := repo.RefreshLastModified(ctx, []uint{n.ID}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, now, got.LastModified, time.Second)
}

func TestNotificationRepository_DeprecateWithLifetime(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	stale := createTestNotification(t, repo, 1, "alice")
	fresh := createTestNotification(t, repo, 1, "bob")
	otherTrigger := createTestNotification(t, repo, 2, "carol")

	now := time.Now()
	backdate(t, db, stale.ID, map[string]any{"last_modified": now.Add(-2 * time.Minute)})
	backdate(t, db, otherTrigger.ID, map[string]any{"last_modified": now.Add(-2 * time.Minute)})

	count, err := repo.DeprecateWithLifetime(ctx, 1, time.Minute, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "only trigger 1's stale notification expires")

	got, err := repo.GetNotification(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.DeactivatedAt)
	assert.WithinDuration(t, now, *got.DeactivatedAt, time.Second)

	got, err = repo.GetNotification(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "recently confirmed notifications stay active")

	got, err = repo.GetNotification(ctx, otherTrigger.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "the sweep is scoped to one trigger")
}

func TestNotificationRepository_SetViewed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "alice")

	count, err := repo.SetViewed(ctx, []uint{n.ID}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsViewed)
}

func TestNotificationRepository_UpdateSendingStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "alice")

	require.NoError(t, repo.UpdateSendingStatus(ctx, n.ID, 10, entities.SendingPending))
	require.NoError(t, repo.UpdateSendingStatus(ctx, n.ID, 11, entities.SendingPending))
	require.NoError(t, repo.UpdateSendingStatus(ctx, n.ID, 10, entities.SendingSuccess))
	require.NoError(t, repo.UpdateSendingStatus(ctx, n.ID, 11, entities.SendingFailed))

	got, err := repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]entities.SendingStatus{
		10: entities.SendingSuccess,
		11: entities.SendingFailed,
	}, got.Meta.Statuses, "statuses merge per endpoint, not replace")

	assert.ErrorIs(t, repo.UpdateSendingStatus(ctx, 999, 10, entities.SendingPending), ErrNotificationNotFound)
}

func TestNotificationRepository_GetReactivatable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	// Expired right after creation: reactivatable.
	flash := createTestNotification(t, repo, 1, "alice")
	// Lived a while before expiring: not reactivatable.
	lived := createTestNotification(t, repo, 1, "bob")
	// Expired long ago: outside the window.
	ancient := createTestNotification(t, repo, 1, "carol")

	now := time.Now()
	backdate(t, db, flash.ID, map[string]any{
		"is_active": false, "created_at": now.Add(-10 * time.Second), "deactivated_at": now.Add(-9 * time.Second),
	})
	backdate(t, db, lived.ID, map[string]any{
		"is_active": false, "created_at": now.Add(-time.Hour), "deactivated_at": now.Add(-9 * time.Second),
	})
	backdate(t, db, ancient.ID, map[string]any{
		"is_active": false, "created_at": now.Add(-2 * time.Hour), "deactivated_at": now.Add(-2 * time.Hour).Add(time.Second),
	})

	got, err := repo.GetReactivatable(ctx, 1, now.Add(-time.Minute), 2*time.Second)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, flash.ID, got[0].ID)
}

func TestNotificationRepository_DeleteByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := t.Context()

	n := createTestNotification(t, repo, 1, "alice")

	count, err := repo.DeleteByIDs(ctx, []uint{n.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = repo.GetNotification(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}
