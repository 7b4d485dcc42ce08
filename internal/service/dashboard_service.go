package service

import (
	"context"
	"time"

	"cmms-backend/internal/model"

	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type AssetRanking struct {
	AssetID    string  `json:"asset_id"`
	AssetName  string  `json:"asset_name"`
	OrderCount int64   `json:"order_count"`
	LaborHours float64 `json:"labor_hours"`
}

type DashboardResponse struct {
	TimeRangeStartDate time.Time `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time `json:"time_range_end_date"`

	OrdersByStatus     []StatusCount  `json:"orders_by_status"`
	OpenOrders         int64          `json:"open_orders"`
	OverdueSchedules   int64          `json:"overdue_schedules"`
	CriticalComponents int64          `json:"critical_components"`
	PartsBelowMin      int64          `json:"parts_below_min"`
	TotalLaborHours    float64        `json:"total_labor_hours"`
	TopAssetsByOrders  []AssetRanking `json:"top_assets_by_orders"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context, startDate, endDate time.Time) (DashboardResponse, error)
}

type dashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) DashboardService {
	return &dashboardService{db: db}
}

// GetDashboard aggregates the plant-wide maintenance picture for a time range
func (s *dashboardService) GetDashboard(ctx context.Context, startDate, endDate time.Time) (DashboardResponse, error) {
	var response DashboardResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	var byStatus []StatusCount
	s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&byStatus)
	response.OrdersByStatus = byStatus

	s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Where("status NOT IN ?", []model.WorkOrderStatus{model.WorkOrderStatusClosed, model.WorkOrderStatusCanceled}).
		Count(&response.OpenOrders)

	s.db.WithContext(ctx).Model(&model.PreventiveSchedule{}).
		Where("next_due_date <= ?", time.Now()).
		Count(&response.OverdueSchedules)

	s.db.WithContext(ctx).Model(&model.Component{}).
		Where("is_scrapped = ? AND status = ?", false, model.ComponentStatusCritical).
		Count(&response.CriticalComponents)

	s.db.WithContext(ctx).Model(&model.SparePart{}).
		Where("min_stock > 0 AND current_stock < min_stock").
		Count(&response.PartsBelowMin)

	var totalLabor struct {
		Value float64
	}
	s.db.WithContext(ctx).Table("labor_logs").
		Select("COALESCE(SUM(labor_logs.hours), 0) as value").
		Joins("JOIN work_orders ON work_orders.id = labor_logs.work_order_id").
		Where("labor_logs.work_date >= ? AND labor_logs.work_date <= ?", startDate, endDate).
		Scan(&totalLabor)
	response.TotalLaborHours = totalLabor.Value

	var topAssets []AssetRanking
	s.db.WithContext(ctx).Table("work_orders").
		Select("work_orders.asset_id as asset_id, work_orders.asset_name as asset_name, COUNT(*) as order_count, COALESCE(SUM(labor_logs.hours), 0) as labor_hours").
		Joins("LEFT JOIN labor_logs ON labor_logs.work_order_id = work_orders.id").
		Where("work_orders.created_at >= ? AND work_orders.created_at <= ?", startDate, endDate).
		Group("work_orders.asset_id, work_orders.asset_name").
		Order("order_count DESC").
		Limit(5).
		Scan(&topAssets)
	response.TopAssetsByOrders = topAssets

	return response, nil
}
