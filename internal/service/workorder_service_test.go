package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
)

func setupWorkOrderTest(t *testing.T) (*gorm.DB, WorkOrderService) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewWorkOrderService(db, notifications, nil, 8.0)
	return db, svc
}

func seedWorkOrder(t *testing.T, db *gorm.DB, asset model.Asset, status model.WorkOrderStatus, code string) model.WorkOrder {
	t.Helper()
	wo := model.WorkOrder{
		Code:      code,
		Title:     "Replace drive belt",
		Type:      model.WorkOrderTypeFault,
		Category:  model.CategoryMechanical,
		Priority:  model.PriorityMedium,
		Status:    status,
		AssetID:   asset.ID,
		AssetName: asset.Name,
	}
	require.NoError(t, db.Create(&wo).Error)
	return wo
}

func TestWorkOrderService_CreateByUserWaitsForApproval(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	user := createTestUser(t, db, "operator", model.RoleUser)

	res, err := svc.Create(context.Background(), asActor(user), CreateWorkOrderRequest{
		Title:    "Strange vibration on the main motor",
		AssetID:  asset.ID.String(),
		Category: model.CategoryMechanical,
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.WorkOrderStatusPendingApproval), res.Status)
	assert.Equal(t, string(model.WorkOrderTypeRequest), res.Type)
	assert.Regexp(t, `^WO-\d{8}-\d{5}$`, res.Code)

	// Creation is audited
	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", model.ActionCreateWorkOrder).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWorkOrderService_CreateBySupervisorSkipsApproval(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)

	res, err := svc.Create(context.Background(), asActor(supervisor), CreateWorkOrderRequest{
		Title:        "Scheduled gearbox inspection",
		AssetID:      asset.ID.String(),
		Category:     model.CategoryMechanical,
		AssignedToID: tech.ID.String(),
		Checklist:    []string{"Drain oil", "Inspect gears", "Refill oil"},
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.WorkOrderStatusAssigned), res.Status)
	assert.False(t, res.ChecklistDone)

	var items []model.ChecklistItem
	require.NoError(t, db.Where("work_order_id = ?", res.ID).Order("position ASC").Find(&items).Error)
	require.Len(t, items, 3)
	assert.Equal(t, "Drain oil", items[0].Description)
}

func TestWorkOrderService_ApproveRequiresManager(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	user := createTestUser(t, db, "operator", model.RoleUser)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingApproval, "WO-T-00001")

	_, err := svc.Approve(context.Background(), asActor(user), wo.ID.String(), ApproveWorkOrderRequest{
		TechnicianID: tech.ID.String(),
		Priority:     model.PriorityHigh,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWorkOrderService_ApproveAssignsTechnician(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingApproval, "WO-T-00001")

	res, err := svc.Approve(context.Background(), asActor(supervisor), wo.ID.String(), ApproveWorkOrderRequest{
		TechnicianID: tech.ID.String(),
		Priority:     model.PriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.WorkOrderStatusAssigned), res.Status)
	assert.Equal(t, string(model.WorkOrderTypeFault), res.Type)
	assert.Equal(t, string(model.PriorityHigh), res.Priority)
	require.NotNil(t, res.AssignedTo)
	assert.Equal(t, tech.ID.String(), *res.AssignedTo)

	// Assignment notification lands in the technician's inbox
	var n model.Notification
	require.NoError(t, db.Where("user_id = ?", tech.ID).First(&n).Error)
	assert.Contains(t, n.Message, wo.Code)
}

func TestWorkOrderService_ApproveRejectsWrongState(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusOpen, "WO-T-00001")

	_, err := svc.Approve(context.Background(), asActor(supervisor), wo.ID.String(), ApproveWorkOrderRequest{
		TechnicianID: tech.ID.String(),
		Priority:     model.PriorityLow,
	})
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestWorkOrderService_LifecycleHappyPath(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusAssigned, "WO-T-00001")

	res, err := svc.Start(ctx, asActor(tech), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusInProgress), res.Status)

	res, err = svc.Pause(ctx, asActor(tech), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusOnHold), res.Status)

	// Pausing closes the open timer session
	var timers []model.WorkOrderTimer
	require.NoError(t, db.Where("work_order_id = ?", wo.ID).Find(&timers).Error)
	require.Len(t, timers, 1)
	assert.NotNil(t, timers[0].EndedAt)

	res, err = svc.Resume(ctx, asActor(tech), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusInProgress), res.Status)

	res, err = svc.MarkDone(ctx, asActor(tech), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusPendingReview), res.Status)

	res, err = svc.Review(ctx, asActor(supervisor), wo.ID.String(), ReviewWorkOrderRequest{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusClosed), res.Status)
	require.NotNil(t, res.ValidatedBy)
	assert.Equal(t, supervisor.ID.String(), *res.ValidatedBy)
	assert.NotNil(t, res.ClosedAt)
}

func TestWorkOrderService_StartRejectsWrongState(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingReview, "WO-T-00001")

	_, err := svc.Start(context.Background(), asActor(tech), wo.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestWorkOrderService_CompleteRequiresFullChecklist(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	item := model.ChecklistItem{WorkOrderID: wo.ID, Position: 0, Description: "Torque check"}
	require.NoError(t, db.Create(&item).Error)

	_, err := svc.Complete(ctx, asActor(tech), wo.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)

	require.NoError(t, svc.SetChecklistItem(ctx, asActor(tech), wo.ID.String(), item.ID.String(), true))

	res, err := svc.Complete(ctx, asActor(tech), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusCompleted), res.Status)
}

func TestWorkOrderService_ReviewRejectReturnsToProgress(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingReview, "WO-T-00001")

	res, err := svc.Review(context.Background(), asActor(supervisor), wo.ID.String(), ReviewWorkOrderRequest{
		Approved: false,
		Note:     "Vibration still present, re-check alignment",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusInProgress), res.Status)
	assert.Nil(t, res.ClosedAt)
}

func TestWorkOrderService_ReviewBlockedByEWOGuard(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingReview, "WO-T-00001")

	// 10 labor hours exceed the 8 hour threshold configured in the setup
	entry := model.LaborLog{WorkOrderID: wo.ID, TechnicianID: tech.ID, Hours: 10, WorkDate: time.Now()}
	require.NoError(t, db.Create(&entry).Error)

	_, err := svc.Review(ctx, asActor(supervisor), wo.ID.String(), ReviewWorkOrderRequest{Approved: true})
	assert.ErrorIs(t, err, ErrGuardViolation)

	// Filing the report unblocks the closure
	require.NoError(t, db.Model(&model.WorkOrder{}).Where("id = ?", wo.ID).Update("ewo_filled", true).Error)

	res, err := svc.Review(ctx, asActor(supervisor), wo.ID.String(), ReviewWorkOrderRequest{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusClosed), res.Status)
}

func TestWorkOrderService_ReviewRegeneratesOriginSchedule(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)

	schedule := model.PreventiveSchedule{
		Title:         "Monthly lubrication",
		AssetID:       asset.ID,
		Frequency:     "monthly",
		FrequencyDays: 30,
		NextDueDate:   time.Now().AddDate(0, 0, -15),
		Category:      model.CategoryMechanical,
		Priority:      model.PriorityMedium,
	}
	require.NoError(t, db.Create(&schedule).Error)

	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusPendingReview, "WO-T-00001")
	require.NoError(t, db.Model(&model.WorkOrder{}).Where("id = ?", wo.ID).
		Update("origin_schedule_id", schedule.ID).Error)

	_, err := svc.Review(context.Background(), asActor(supervisor), wo.ID.String(), ReviewWorkOrderRequest{Approved: true})
	require.NoError(t, err)

	// The next cycle is anchored on the closure time, not the old due date
	var reloaded model.PreventiveSchedule
	require.NoError(t, db.First(&reloaded, "id = ?", schedule.ID).Error)
	require.NotNil(t, reloaded.LastRunDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), reloaded.NextDueDate, time.Minute)
}

func TestWorkOrderService_CancelIsManagerOnlyAndFinal(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusOpen, "WO-T-00001")

	_, err := svc.Cancel(ctx, asActor(tech), wo.ID.String())
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := svc.Cancel(ctx, asActor(supervisor), wo.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.WorkOrderStatusCanceled), res.Status)

	// Terminal orders cannot be canceled again
	_, err = svc.Cancel(ctx, asActor(supervisor), wo.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestWorkOrderService_AddPartConsumesStock(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	part := model.SparePart{SKU: "BRG-6204", Name: "Bearing 6204", CurrentStock: 5, MinStock: 2}
	require.NoError(t, db.Create(&part).Error)

	err := svc.AddPart(ctx, asActor(tech), wo.ID.String(), AddPartRequest{
		SparePartID: part.ID.String(),
		Quantity:    10,
	})
	assert.ErrorIs(t, err, ErrGuardViolation)

	require.NoError(t, svc.AddPart(ctx, asActor(tech), wo.ID.String(), AddPartRequest{
		SparePartID: part.ID.String(),
		Quantity:    2,
	}))

	var reloaded model.SparePart
	require.NoError(t, db.First(&reloaded, "id = ?", part.ID).Error)
	assert.Equal(t, 3, reloaded.CurrentStock)

	var consumption model.WorkOrderPart
	require.NoError(t, db.Where("work_order_id = ?", wo.ID).First(&consumption).Error)
	assert.Equal(t, 2, consumption.Quantity)
}

func TestWorkOrderService_AddLaborOnTerminalOrderFails(t *testing.T) {
	db, svc := setupWorkOrderTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)
	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusClosed, "WO-T-00001")

	err := svc.AddLaborLog(context.Background(), asActor(tech), wo.ID.String(), AddLaborLogRequest{Hours: 1})
	assert.ErrorIs(t, err, ErrGuardViolation)
}
