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

func setupScheduleTest(t *testing.T) (*gorm.DB, ScheduleService) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewScheduleService(db, notifications)
	return db, svc
}

func TestScheduleService_CreateRequiresManager(t *testing.T) {
	db, svc := setupScheduleTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	user := createTestUser(t, db, "operator", model.RoleUser)

	_, err := svc.Create(context.Background(), asActor(user), CreateScheduleRequest{
		Title:         "Weekly filter clean",
		AssetID:       asset.ID.String(),
		Frequency:     "weekly",
		FrequencyDays: 7,
		FirstDueDate:  time.Now().AddDate(0, 0, 7).Format(time.RFC3339),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestScheduleService_CreateWithActivities(t *testing.T) {
	db, svc := setupScheduleTest(t)
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)

	res, err := svc.Create(context.Background(), asActor(supervisor), CreateScheduleRequest{
		Title:         "Monthly lubrication",
		AssetID:       asset.ID.String(),
		Frequency:     "monthly",
		FrequencyDays: 30,
		FirstDueDate:  time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
		Activities:    []string{"Grease bearings", "Check oil level"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Grease bearings", "Check oil level"}, res.Activities)
	assert.False(t, res.Overdue)
}

func TestScheduleService_GenerateDueOrders(t *testing.T) {
	db, svc := setupScheduleTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)

	schedule := model.PreventiveSchedule{
		Title:             "Monthly lubrication",
		Details:           "Full lubrication round",
		AssetID:           asset.ID,
		Frequency:         "monthly",
		FrequencyDays:     30,
		NextDueDate:       time.Now().AddDate(0, 0, -1),
		DefaultAssigneeID: &tech.ID,
		Category:          model.CategoryMechanical,
		Priority:          model.PriorityMedium,
	}
	require.NoError(t, db.Create(&schedule).Error)
	require.NoError(t, db.Create(&model.ScheduleActivity{
		ScheduleID: schedule.ID, Position: 0, Description: "Grease bearings",
	}).Error)
	require.NoError(t, db.Create(&model.ScheduleActivity{
		ScheduleID: schedule.ID, Position: 1, Description: "Check oil level",
	}).Error)

	// Schedule not yet due must be skipped
	future := model.PreventiveSchedule{
		Title:         "Quarterly overhaul",
		AssetID:       asset.ID,
		Frequency:     "quarterly",
		FrequencyDays: 90,
		NextDueDate:   time.Now().AddDate(0, 0, 60),
		Category:      model.CategoryMechanical,
		Priority:      model.PriorityLow,
	}
	require.NoError(t, db.Create(&future).Error)

	created, err := svc.GenerateDueOrders(ctx, asActor(supervisor), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var wo model.WorkOrder
	require.NoError(t, db.Where("origin_schedule_id = ?", schedule.ID).First(&wo).Error)
	assert.Equal(t, model.WorkOrderTypeRoutine, wo.Type)
	assert.Equal(t, model.WorkOrderStatusAssigned, wo.Status)
	require.NotNil(t, wo.AssignedToID)
	assert.Equal(t, tech.ID, *wo.AssignedToID)

	// Activities are copied into the checklist in order
	var items []model.ChecklistItem
	require.NoError(t, db.Where("work_order_id = ?", wo.ID).Order("position ASC").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, "Grease bearings", items[0].Description)
}

func TestScheduleService_GenerateDueOrdersIsIdempotent(t *testing.T) {
	db, svc := setupScheduleTest(t)
	ctx := context.Background()
	asset := createTestAsset(t, db, "EXT-01")
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)

	schedule := model.PreventiveSchedule{
		Title:         "Monthly lubrication",
		AssetID:       asset.ID,
		Frequency:     "monthly",
		FrequencyDays: 30,
		NextDueDate:   time.Now().AddDate(0, 0, -1),
		Category:      model.CategoryMechanical,
		Priority:      model.PriorityMedium,
	}
	require.NoError(t, db.Create(&schedule).Error)

	created, err := svc.GenerateDueOrders(ctx, asActor(supervisor), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// The schedule is still due (it only advances at closure) but already has
	// a live generated order, so a second run creates nothing
	created, err = svc.GenerateDueOrders(ctx, asActor(supervisor), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	require.NoError(t, db.Model(&model.WorkOrder{}).Where("origin_schedule_id = ?", schedule.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestScheduleService_GenerateDueOrdersRequiresManager(t *testing.T) {
	db, svc := setupScheduleTest(t)
	user := createTestUser(t, db, "operator", model.RoleUser)

	_, err := svc.GenerateDueOrders(context.Background(), asActor(user), time.Now())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
