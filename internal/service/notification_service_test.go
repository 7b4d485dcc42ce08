package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
)

func TestNotificationService_NotifyPersistsWithoutHub(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	user := createTestUser(t, db, "tech", model.RoleMaintainer)

	svc.Notify(context.Background(), user.ID, "Work order assigned", "WO-20260831-00001: Replace belt", "/work-orders/x")

	var n model.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&n).Error)
	assert.Equal(t, "Work order assigned", n.Title)
	assert.Nil(t, n.ReadAt)
}

func TestNotificationService_MarkRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "tech", model.RoleMaintainer)
	other := createTestUser(t, db, "other", model.RoleMaintainer)

	svc.Notify(ctx, user.ID, "One", "first", "")
	svc.Notify(ctx, user.ID, "Two", "second", "")

	var n model.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&n).Error)

	// Users only touch their own inbox
	err := svc.MarkRead(ctx, other.ID.String(), n.ID.String())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, svc.MarkRead(ctx, user.ID.String(), n.ID.String()))

	unread, total, err := svc.List(ctx, user.ID.String(), true, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, unread, 1)

	require.NoError(t, svc.MarkAllRead(ctx, user.ID.String()))

	_, total, err = svc.List(ctx, user.ID.String(), true, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestAuditService_FilterByAction(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin", model.RoleAdmin)

	require.NoError(t, db.Create(&model.AuditLog{
		UserID: &admin.ID, Action: model.ActionCreateWorkOrder, EntityID: "a", EntityName: "Order A",
	}).Error)
	require.NoError(t, db.Create(&model.AuditLog{
		UserID: nil, Action: model.ActionGenerateDueWork, EntityID: "", Details: `{"created": 2}`,
	}).Error)

	logs, total, err := svc.GetAuditLogs(ctx, 1, 20, model.ActionCreateWorkOrder, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin", logs[0].Username)

	// Rows without an actor surface as System
	logs, _, err = svc.GetAuditLogs(ctx, 1, 20, model.ActionGenerateDueWork, "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "System", logs[0].Username)
}
