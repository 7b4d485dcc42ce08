package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
)

func setupSparePartTest(t *testing.T) (*gorm.DB, SparePartService) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewSparePartService(db, notifications)
	return db, svc
}

func seedSparePart(t *testing.T, db *gorm.DB, sku string, stock, min int) model.SparePart {
	t.Helper()
	part := model.SparePart{SKU: sku, Name: "Part " + sku, CurrentStock: stock, MinStock: min}
	require.NoError(t, db.Create(&part).Error)
	return part
}

func TestSparePartService_AdjustStock(t *testing.T) {
	db, svc := setupSparePartTest(t)
	ctx := context.Background()
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	part := seedSparePart(t, db, "BRG-6204", 10, 2)

	res, err := svc.AdjustStock(ctx, asActor(supervisor), part.ID.String(), AdjustStockRequest{
		Delta:  -4,
		Reason: "cycle count correction",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.CurrentStock)

	// Stock can never go negative
	_, err = svc.AdjustStock(ctx, asActor(supervisor), part.ID.String(), AdjustStockRequest{Delta: -10})
	assert.ErrorIs(t, err, ErrGuardViolation)
}

func TestSparePartService_AdjustStockRequiresManager(t *testing.T) {
	db, svc := setupSparePartTest(t)
	user := createTestUser(t, db, "operator", model.RoleUser)
	part := seedSparePart(t, db, "BRG-6204", 10, 2)

	_, err := svc.AdjustStock(context.Background(), asActor(user), part.ID.String(), AdjustStockRequest{Delta: 1})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSparePartService_LowStockAlertsManagers(t *testing.T) {
	db, svc := setupSparePartTest(t)
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	part := seedSparePart(t, db, "BRG-6204", 5, 4)

	res, err := svc.AdjustStock(context.Background(), asActor(supervisor), part.ID.String(), AdjustStockRequest{Delta: -3})
	require.NoError(t, err)
	assert.True(t, res.BelowMinStock)

	var n model.Notification
	require.NoError(t, db.Where("user_id = ?", supervisor.ID).First(&n).Error)
	assert.Contains(t, n.Message, "BRG-6204")
}

func TestSparePartService_ListBelowMinOnly(t *testing.T) {
	db, svc := setupSparePartTest(t)
	seedSparePart(t, db, "BRG-6204", 1, 4)
	seedSparePart(t, db, "SEAL-12", 20, 4)
	seedSparePart(t, db, "FUSE-5A", 0, 0) // No minimum configured, never flagged

	parts, total, err := svc.List(context.Background(), 1, 20, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, parts, 1)
	assert.Equal(t, "BRG-6204", parts[0].SKU)
}

func TestAssetService_DeleteBlockedByOpenOrders(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db)
	ctx := context.Background()
	supervisor := createTestUser(t, db, "supervisor", model.RoleSupervisor)
	asset := createTestAsset(t, db, "EXT-01")

	wo := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")

	err := svc.Delete(ctx, asActor(supervisor), asset.ID.String())
	assert.ErrorIs(t, err, ErrGuardViolation)

	// Closing the last open order clears the guard
	require.NoError(t, db.Model(&model.WorkOrder{}).Where("id = ?", wo.ID).
		Update("status", model.WorkOrderStatusClosed).Error)
	require.NoError(t, svc.Delete(ctx, asActor(supervisor), asset.ID.String()))
}
