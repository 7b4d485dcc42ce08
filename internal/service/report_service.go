package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cmms-backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// --- DTOs ---

type WorkOrderReportFilter struct {
	AssetID string
	From    *time.Time
	To      *time.Time
}

// --- Interface ---

type ReportService interface {
	// ExportWorkOrderHistory renders the work-order history as an xlsx
	// workbook and returns its bytes plus a suggested filename
	ExportWorkOrderHistory(ctx context.Context, filter WorkOrderReportFilter) ([]byte, string, error)
}

type reportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) ReportService {
	return &reportService{db: db}
}

// --- Implementation ---

var workOrderReportHeaders = []string{
	"Code", "Title", "Type", "Category", "Priority", "Status",
	"Asset", "Labor Hours", "Parts Cost", "Created", "Closed",
}

func (s *reportService) ExportWorkOrderHistory(ctx context.Context, filter WorkOrderReportFilter) ([]byte, string, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkOrder{})
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var orders []model.WorkOrder
	if err := query.
		Preload("LaborLogs").
		Preload("Parts").
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, "", fmt.Errorf("failed to load work orders: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("failed to close workbook: %v", err)
		}
	}()

	sheetName := "Work Orders"
	f.SetSheetName("Sheet1", sheetName)

	for i, header := range workOrderReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, wo := range orders {
		values := []interface{}{
			wo.Code,
			wo.Title,
			string(wo.Type),
			string(wo.Category),
			string(wo.Priority),
			string(wo.Status),
			wo.AssetName,
			wo.TotalLaborHours(),
			partsCost(&wo),
			wo.CreatedAt.Format("2006-01-02"),
			"",
		}
		if wo.ClosedAt != nil {
			values[len(values)-1] = wo.ClosedAt.Format("2006-01-02")
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("work-orders-%s.xlsx", time.Now().Format("20060102"))
	return buf.Bytes(), filename, nil
}

// partsCost totals quantity * unit cost over the consumed parts
func partsCost(wo *model.WorkOrder) float64 {
	total := decimal.Zero
	for _, p := range wo.Parts {
		total = total.Add(p.UnitCost.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	cost, _ := total.Float64()
	return cost
}
