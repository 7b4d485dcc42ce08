package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
)

func setupComponentTest(t *testing.T) (*gorm.DB, ComponentService) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewComponentService(db, notifications)
	return db, svc
}

func seedComponent(t *testing.T, db *gorm.DB, code string, componentType model.ComponentType, nominal string) model.Component {
	t.Helper()
	component := model.Component{
		Code:            code,
		Type:            componentType,
		NominalDiameter: decimal.RequireFromString(nominal),
		Status:          model.ComponentStatusOptimal,
		Warehouse:       model.WarehouseRetinato,
	}
	require.NoError(t, db.Create(&component).Error)
	return component
}

func TestComponentService_AddMeasurementReclassifies(t *testing.T) {
	db, svc := setupComponentTest(t)
	operator := createTestUser(t, db, "operator", model.RoleMaintainer)
	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")

	res, err := svc.AddMeasurement(context.Background(), asActor(operator), component.ID.String(), AddMeasurementRequest{
		Value: "100.55",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.ComponentStatusNeedsNitriding), res.Status)

	// Status is persisted, not derived at read time
	var reloaded model.Component
	require.NoError(t, db.First(&reloaded, "id = ?", component.ID).Error)
	assert.Equal(t, model.ComponentStatusNeedsNitriding, reloaded.Status)

	var count int64
	require.NoError(t, db.Model(&model.Measurement{}).Where("component_id = ?", component.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestComponentService_BackdatedMeasurementKeepsLatestStatus(t *testing.T) {
	db, svc := setupComponentTest(t)
	ctx := context.Background()
	operator := createTestUser(t, db, "operator", model.RoleMaintainer)
	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")

	_, err := svc.AddMeasurement(ctx, asActor(operator), component.ID.String(), AddMeasurementRequest{
		Value: "101.20",
	})
	require.NoError(t, err)

	// An older reading arriving late is recorded but must not win over the
	// most recent one
	backdated := time.Now().AddDate(-1, 0, 0).Format(time.RFC3339)
	res, err := svc.AddMeasurement(ctx, asActor(operator), component.ID.String(), AddMeasurementRequest{
		Value:      "100.10",
		MeasuredAt: backdated,
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.ComponentStatusCritical), res.Status)
	require.NotNil(t, res.LastMeasurement)
	assert.Equal(t, "101.2", *res.LastMeasurement)

	var reloaded model.Component
	require.NoError(t, db.First(&reloaded, "id = ?", component.ID).Error)
	assert.Equal(t, model.ComponentStatusCritical, reloaded.Status)

	var count int64
	require.NoError(t, db.Model(&model.Measurement{}).Where("component_id = ?", component.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestComponentService_AddMeasurementOnScrappedFails(t *testing.T) {
	db, svc := setupComponentTest(t)
	operator := createTestUser(t, db, "operator", model.RoleMaintainer)
	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")
	require.NoError(t, db.Model(&component).Update("is_scrapped", true).Error)

	_, err := svc.AddMeasurement(context.Background(), asActor(operator), component.ID.String(), AddMeasurementRequest{
		Value: "100.10",
	})
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestComponentService_CriticalMeasurementAlertsManagers(t *testing.T) {
	db, svc := setupComponentTest(t)
	operator := createTestUser(t, db, "operator", model.RoleMaintainer)
	admin := createTestUser(t, db, "admin", model.RoleAdmin)
	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")

	// Deviation 1.2 mm is past the regeneration band
	_, err := svc.AddMeasurement(context.Background(), asActor(operator), component.ID.String(), AddMeasurementRequest{
		Value: "101.20",
	})
	require.NoError(t, err)

	var n model.Notification
	require.NoError(t, db.Where("user_id = ?", admin.ID).First(&n).Error)
	assert.Contains(t, n.Message, "SCR-001")
}

func TestComponentService_ReassignEvictsIncumbent(t *testing.T) {
	db, svc := setupComponentTest(t)
	ctx := context.Background()
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	asset := createTestAsset(t, db, "EXT-01")

	incumbent := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")
	require.NoError(t, db.Model(&incumbent).Update("assigned_asset_id", asset.ID).Error)

	replacement := seedComponent(t, db, "SCR-002", model.ComponentTypeScrew, "100.00")

	res, err := svc.Reassign(ctx, asActor(supervisor), replacement.ID.String(), ReassignComponentRequest{
		AssetID: asset.ID.String(),
	})
	require.NoError(t, err)

	require.NotNil(t, res.Component.AssignedAssetID)
	assert.Equal(t, asset.ID.String(), *res.Component.AssignedAssetID)

	// The swap surfaces the evicted component to the caller
	require.NotNil(t, res.Evicted)
	assert.Equal(t, "SCR-001", res.Evicted.Code)

	var old model.Component
	require.NoError(t, db.First(&old, "id = ?", incumbent.ID).Error)
	assert.Nil(t, old.AssignedAssetID)
}

func TestComponentService_ReassignDifferentTypeCoexists(t *testing.T) {
	db, svc := setupComponentTest(t)
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	asset := createTestAsset(t, db, "EXT-01")

	screw := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")
	require.NoError(t, db.Model(&screw).Update("assigned_asset_id", asset.ID).Error)

	barrel := seedComponent(t, db, "BRL-001", model.ComponentTypeBarrel, "120.00")

	res, err := svc.Reassign(context.Background(), asActor(supervisor), barrel.ID.String(), ReassignComponentRequest{
		AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Evicted)

	// The screw stays mounted
	var reloaded model.Component
	require.NoError(t, db.First(&reloaded, "id = ?", screw.ID).Error)
	require.NotNil(t, reloaded.AssignedAssetID)
}

func TestComponentService_ReassignToWarehouse(t *testing.T) {
	db, svc := setupComponentTest(t)
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	asset := createTestAsset(t, db, "EXT-01")

	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")
	require.NoError(t, db.Model(&component).Update("assigned_asset_id", asset.ID).Error)

	res, err := svc.Reassign(context.Background(), asActor(supervisor), component.ID.String(), ReassignComponentRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.Component.AssignedAssetID)
	assert.Nil(t, res.Evicted)
}

func TestComponentService_Scrap(t *testing.T) {
	db, svc := setupComponentTest(t)
	ctx := context.Background()
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	asset := createTestAsset(t, db, "EXT-01")

	component := seedComponent(t, db, "SCR-001", model.ComponentTypeScrew, "100.00")
	require.NoError(t, db.Model(&component).Update("assigned_asset_id", asset.ID).Error)

	res, err := svc.Scrap(ctx, asActor(supervisor), component.ID.String())
	require.NoError(t, err)
	assert.True(t, res.IsScrapped)
	assert.Nil(t, res.AssignedAssetID)

	// Scrapping is a flag, the row and its history stay
	var reloaded model.Component
	require.NoError(t, db.First(&reloaded, "id = ?", component.ID).Error)
	assert.True(t, reloaded.IsScrapped)

	_, err = svc.Scrap(ctx, asActor(supervisor), component.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)
}
