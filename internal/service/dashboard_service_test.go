package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cmms-backend/internal/model"
)

func TestDashboardService_GetDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db)
	asset := createTestAsset(t, db, "EXT-01")
	tech := createTestUser(t, db, "tech", model.RoleMaintainer)

	open := seedWorkOrder(t, db, asset, model.WorkOrderStatusInProgress, "WO-T-00001")
	seedWorkOrder(t, db, asset, model.WorkOrderStatusClosed, "WO-T-00002")

	require.NoError(t, db.Create(&model.LaborLog{
		WorkOrderID: open.ID, TechnicianID: tech.ID, Hours: 3.5, WorkDate: time.Now(),
	}).Error)

	require.NoError(t, db.Create(&model.PreventiveSchedule{
		Title: "Overdue plan", AssetID: asset.ID, Frequency: "monthly", FrequencyDays: 30,
		NextDueDate: time.Now().AddDate(0, 0, -3),
		Category:    model.CategoryMechanical, Priority: model.PriorityMedium,
	}).Error)

	require.NoError(t, db.Create(&model.Component{
		Code: "SCR-001", Type: model.ComponentTypeScrew,
		NominalDiameter: decimal.RequireFromString("100.00"),
		Status:          model.ComponentStatusCritical,
		Warehouse:       model.WarehouseRetinato,
	}).Error)

	require.NoError(t, db.Create(&model.SparePart{
		SKU: "BRG-6204", Name: "Bearing", CurrentStock: 1, MinStock: 4,
	}).Error)

	res, err := svc.GetDashboard(context.Background(), time.Now().AddDate(0, 0, -30), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.OpenOrders)
	assert.EqualValues(t, 1, res.OverdueSchedules)
	assert.EqualValues(t, 1, res.CriticalComponents)
	assert.EqualValues(t, 1, res.PartsBelowMin)
	assert.InDelta(t, 3.5, res.TotalLaborHours, 0.001)
	require.NotEmpty(t, res.TopAssetsByOrders)
	assert.Equal(t, asset.Name, res.TopAssetsByOrders[0].AssetName)
}

func TestReportService_ExportWorkOrderHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)
	asset := createTestAsset(t, db, "EXT-01")
	seedWorkOrder(t, db, asset, model.WorkOrderStatusClosed, "WO-T-00001")

	data, filename, err := svc.ExportWorkOrderHistory(context.Background(), WorkOrderReportFilter{})
	require.NoError(t, err)
	assert.Regexp(t, `^work-orders-\d{8}\.xlsx$`, filename)

	// The workbook opens and carries the seeded order
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Work Orders")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Contains(t, rows[1], "WO-T-00001")
}
