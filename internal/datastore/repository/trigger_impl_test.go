package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/watchgrid/triggerd/internal/condlang"
	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

const (
	wsMain       = "11111111-0000-4000-8000-000000000001"
	wsOther      = "11111111-0000-4000-8000-000000000002"
	labelGuards  = "22222222-0000-4000-8000-0000000000aa"
	labelVisitor = "22222222-0000-4000-8000-0000000000bb"
	locationGate = "33333333-0000-4000-8000-0000000000cc"
)

// setupTestDB creates an in-memory SQLite database. Uses shared-cache mode
// with a single connection so all operations see the same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.Trigger{},
		&entities.Endpoint{},
		&entities.Notification{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}

func createTestEndpoint(t *testing.T, db *gorm.DB, endpointType string) *entities.Endpoint {
	t.Helper()
	endpoint := &entities.Endpoint{
		WorkspaceID: wsMain,
		Type:        endpointType,
		Meta:        map[string]any{"url": "http://sink"},
	}
	require.NoError(t, db.Create(endpoint).Error)
	return endpoint
}

func presenceMeta(targetUUID string, lifetimeSec int) entities.TriggerMeta {
	return entities.TriggerMeta{
		NotificationParams: entities.NotificationParams{"lifetime": lifetimeSec},
		ConditionLanguage: condlang.ConditionLanguage{
			Variables: map[string]condlang.ConditionVariable{
				"0_v": {
					Type:      condlang.TypePresence,
					Targets:   []condlang.TargetRef{{Kind: condlang.KindLabel, UUID: targetUUID}},
					Operation: condlang.OperatorGreaterOrEqual,
					Limit:     1,
				},
			},
		},
	}
}

func createTestTrigger(t *testing.T, repo TriggerRepository, workspaceID, title string, endpointIDs []uint) *entities.Trigger {
	t.Helper()
	trigger := &entities.Trigger{
		WorkspaceID: workspaceID,
		Title:       title,
		IsActive:    true,
		Meta:        presenceMeta(labelGuards, 60),
	}
	require.NoError(t, repo.CreateTrigger(t.Context(), trigger, endpointIDs))
	return trigger
}

func TestTriggerRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	webhook := createTestEndpoint(t, db, entities.EndpointTypeWebhook)
	email := createTestEndpoint(t, db, entities.EndpointTypeEmail)

	trigger := createTestTrigger(t, repo, wsMain, "Guards at the gate", []uint{webhook.ID, email.ID})
	assert.NotZero(t, trigger.ID)

	got, err := repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guards at the gate", got.Title)
	assert.Equal(t, wsMain, got.WorkspaceID)
	assert.True(t, got.IsActive)
	assert.Len(t, got.Endpoints, 2)

	lang := got.Meta.ConditionLanguage
	require.Contains(t, lang.Variables, "0_v")
	assert.Equal(t, condlang.TypePresence, lang.Variables["0_v"].Type)
	assert.Equal(t, labelGuards, lang.Variables["0_v"].Targets[0].UUID)
	assert.Equal(t, 60*time.Second, got.Lifetime())
}

func TestTriggerRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)

	_, err := repo.GetTrigger(t.Context(), 999)
	assert.ErrorIs(t, err, ErrTriggerNotFound)
}

func TestTriggerRepository_CreateRejectsMissingEndpoints(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)

	trigger := &entities.Trigger{WorkspaceID: wsMain, Title: "orphan", IsActive: true}
	err := repo.CreateTrigger(t.Context(), trigger, []uint{12345})
	assert.Error(t, err)
}

func TestTriggerRepository_UpdateMeta(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	trigger := createTestTrigger(t, repo, wsMain, "Guards", nil)

	updated := presenceMeta(labelVisitor, 120)
	require.NoError(t, repo.UpdateTriggerMeta(ctx, trigger.ID, updated))

	got, err := repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, labelVisitor, got.Meta.ConditionLanguage.Variables["0_v"].Targets[0].UUID)
	assert.Equal(t, 120*time.Second, got.Lifetime())

	assert.ErrorIs(t, repo.UpdateTriggerMeta(ctx, 999, updated), ErrTriggerNotFound)
}

func TestTriggerRepository_SetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	trigger := createTestTrigger(t, repo, wsMain, "Guards", nil)

	require.NoError(t, repo.SetTriggerActive(ctx, trigger.ID, false))
	got, err := repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, repo.SetTriggerActive(ctx, 999, true), ErrTriggerNotFound)
}

func TestTriggerRepository_DeleteDeactivatesNotifications(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	notifications := NewNotificationRepository(db)
	ctx := t.Context()

	webhook := createTestEndpoint(t, db, entities.EndpointTypeWebhook)
	trigger := createTestTrigger(t, repo, wsMain, "Guards", []uint{webhook.ID})

	n := &entities.Notification{
		WorkspaceID: wsMain,
		TriggerID:   trigger.ID,
		ProfileID:   "profile-1",
		IsActive:    true,
	}
	require.NoError(t, notifications.CreateNotification(ctx, n))

	require.NoError(t, repo.DeleteTrigger(ctx, trigger.ID))

	_, err := repo.GetTrigger(ctx, trigger.ID)
	assert.ErrorIs(t, err, ErrTriggerNotFound)

	// The notification history survives, deactivated.
	stored, err := notifications.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.DeactivatedAt)

	// The endpoint itself is untouched, only the join rows go.
	var endpointCount int64
	require.NoError(t, db.Model(&entities.Endpoint{}).Count(&endpointCount).Error)
	assert.EqualValues(t, 1, endpointCount)

	assert.ErrorIs(t, repo.DeleteTrigger(ctx, trigger.ID), ErrTriggerNotFound)
}

func TestTriggerRepository_ListActiveTriggers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	first := createTestTrigger(t, repo, wsMain, "first", nil)
	second := createTestTrigger(t, repo, wsMain, "second", nil)
	createTestTrigger(t, repo, wsOther, "elsewhere", nil)

	disabled := createTestTrigger(t, repo, wsMain, "disabled", nil)
	require.NoError(t, repo.SetTriggerActive(ctx, disabled.ID, false))

	triggers, err := repo.ListActiveTriggers(ctx, wsMain)
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, first.ID, triggers[0].ID)
	assert.Equal(t, second.ID, triggers[1].ID)
}

func TestTriggerRepository_ListWorkspaceIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	createTestTrigger(t, repo, wsMain, "a", nil)
	createTestTrigger(t, repo, wsMain, "b", nil)
	createTestTrigger(t, repo, wsOther, "c", nil)

	ids, err := repo.ListWorkspaceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{wsMain, wsOther}, ids)
}

func TestTriggerRepository_ListTriggersReferencing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTriggerRepository(db)
	ctx := t.Context()

	byLabel := createTestTrigger(t, repo, wsMain, "by label", nil)

	overflow := &entities.Trigger{
		WorkspaceID: wsMain,
		Title:       "by place",
		IsActive:    true,
		Meta: entities.TriggerMeta{
			ConditionLanguage: condlang.ConditionLanguage{
				Variables: map[string]condlang.ConditionVariable{
					"0_v": {
						Type:      condlang.TypeLocationOverflow,
						Places:    []condlang.PlaceRef{{Kind: condlang.KindLocation, UUID: locationGate}},
						Operation: condlang.OperatorGreaterThan,
						Limit:     5,
					},
				},
			},
		},
	}
	require.NoError(t, repo.CreateTrigger(ctx, overflow, nil))

	matched, err := repo.ListTriggersReferencing(ctx, labelGuards)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, byLabel.ID, matched[0].ID)

	matched, err = repo.ListTriggersReferencing(ctx, locationGate)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, overflow.ID, matched[0].ID)

	matched, err = repo.ListTriggersReferencing(ctx, "00000000-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.Empty(t, matched)
}
