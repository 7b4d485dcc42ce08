package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
)

func setupEWOTest(t *testing.T) (*gorm.DB, EWOService) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewEWOService(db, notifications, nil)
	return db, svc
}

func TestEWOService_SubmitFlagsWorkOrder(t *testing.T) {
	db, svc := setupEWOTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	res, err := svc.Submit(context.Background(), asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Bearing seized after lubrication failure",
		AppliedSolution: "Replaced bearing and flushed the lubrication circuit",
	})
	require.NoError(t, err)
	assert.Equal(t, wo.ID.String(), res.WorkOrderID)

	// The closure guard flag commits with the report
	var reloaded model.WorkOrder
	require.NoError(t, db.First(&reloaded, "id = ?", wo.ID).Error)
	assert.True(t, reloaded.EWOFilled)
}

func TestEWOService_ResubmitUpdatesInPlace(t *testing.T) {
	db, svc := setupEWOTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	first, err := svc.Submit(ctx, asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Initial analysis",
		AppliedSolution: "Temporary fix",
	})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Refined analysis",
		AppliedSolution: "Permanent fix",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.EWO{}).Where("work_order_id = ?", wo.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var ewo model.EWO
	require.NoError(t, db.Where("work_order_id = ?", wo.ID).First(&ewo).Error)
	assert.Equal(t, "Refined analysis", ewo.CauseAnalysis)
}

func TestEWOService_SubmitOnTerminalOrderFails(t *testing.T) {
	db, svc := setupEWOTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusClosed, "WO-T-00001")

	_, err := svc.Submit(context.Background(), asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Too late",
		AppliedSolution: "None",
	})
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestEWOService_FollowUpSpawnedOnce(t *testing.T) {
	db, svc := setupEWOTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	res, err := svc.Submit(ctx, asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Root cause is a misaligned coupling",
		AppliedSolution: "Realigned and restarted",
		NeedsFollowUp:   true,
		FollowUpDetail:  "Laser alignment during next planned stop",
	})
	require.NoError(t, err)
	require.NotNil(t, res.FollowUpOrderID)

	var followUp model.WorkOrder
	require.NoError(t, db.First(&followUp, "id = ?", *res.FollowUpOrderID).Error)
	assert.Equal(t, model.WorkOrderStatusPendingApproval, followUp.Status)
	assert.Equal(t, model.WorkOrderTypeRequest, followUp.Type)
	require.NotNil(t, followUp.FollowUpOfID)
	assert.Equal(t, wo.ID, *followUp.FollowUpOfID)

	// A resubmission must not spawn a second follow-up
	_, err = svc.Submit(ctx, asActor(tech), wo.ID.String(), SubmitEWORequest{
		CauseAnalysis:   "Root cause is a misaligned coupling",
		AppliedSolution: "Realigned and restarted",
		NeedsFollowUp:   true,
		FollowUpDetail:  "Laser alignment during next planned stop",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.WorkOrder{}).Where("follow_up_of_id = ?", wo.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEWOService_DraftWithoutDrafterFails(t *testing.T) {
	db, svc := setupEWOTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	_, err := svc.Draft(context.Background(), wo.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestEWOService_DraftFromGenerator(t *testing.T) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	drafter := NewSuggestionService(db, &StaticTextGenerator{
		Text: "Bearing seized after lubrication failure.\n\nReplaced bearing and flushed the lubrication circuit.",
	})
	svc := NewEWOService(db, notifications, drafter)

	asset := createTestAsset(t, db, "EXT-01")
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	draft, err := svc.Draft(context.Background(), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Bearing seized after lubrication failure.", draft.CauseAnalysis)
	assert.Equal(t, "Replaced bearing and flushed the lubrication circuit.", draft.AppliedSolution)
}
