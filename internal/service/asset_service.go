package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmms-backend/internal/model"
	"cmms-backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateAssetRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Manufacturer string `json:"manufacturer"`
	SerialNumber string `json:"serial_number"`
	Area         string `json:"area"`
	InstalledAt  string `json:"installed_at"` // RFC3339
	Notes        string `json:"notes"`
}

type UpdateAssetRequest struct {
	Name         string            `json:"name" binding:"required"`
	Manufacturer string            `json:"manufacturer"`
	SerialNumber string            `json:"serial_number"`
	Area         string            `json:"area"`
	Status       model.AssetStatus `json:"status" binding:"omitempty,oneof=RUNNING STOPPED MAINTENANCE RETIRED"`
	Notes        string            `json:"notes"`
}

type AssetResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	SerialNumber string `json:"serial_number"`
	Area         string `json:"area"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

// --- Interface ---

type AssetService interface {
	List(ctx context.Context, page, limit int, area string) ([]AssetResponse, int64, error)
	Get(ctx context.Context, id string) (*model.Asset, error)
	Create(ctx context.Context, actor Actor, req CreateAssetRequest) (AssetResponse, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateAssetRequest) (AssetResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type assetService struct {
	db *gorm.DB
}

func NewAssetService(db *gorm.DB) AssetService {
	return &assetService{db: db}
}

// --- Implementation ---

func (s *assetService) List(ctx context.Context, page, limit int, area string) ([]AssetResponse, int64, error) {
	p := pagination.Clamp(page, limit)

	query := s.db.WithContext(ctx).Model(&model.Asset{})
	if area != "" {
		query = query.Where("area = ?", area)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []model.Asset
	if err := query.Order("code ASC").Offset(p.Offset).Limit(p.Limit).Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	res := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		res = append(res, toAssetResponse(&assets[i]))
	}
	return res, total, nil
}

func (s *assetService) Get(ctx context.Context, id string) (*model.Asset, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid asset id: %w", err)
	}
	var asset model.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *assetService) Create(ctx context.Context, actor Actor, req CreateAssetRequest) (AssetResponse, error) {
	if err := requireManager(actor); err != nil {
		return AssetResponse{}, err
	}

	asset := model.Asset{
		Code:         req.Code,
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		SerialNumber: req.SerialNumber,
		Area:         req.Area,
		Status:       model.AssetStatusRunning,
		Notes:        req.Notes,
	}
	if req.InstalledAt != "" {
		installed, parseErr := time.Parse(time.RFC3339, req.InstalledAt)
		if parseErr != nil {
			return AssetResponse{}, fmt.Errorf("invalid installed_at: %w", parseErr)
		}
		asset.InstalledAt = &installed
	}

	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		return AssetResponse{}, fmt.Errorf("failed to create asset: %w", err)
	}
	return toAssetResponse(&asset), nil
}

func (s *assetService) Update(ctx context.Context, actor Actor, id string, req UpdateAssetRequest) (AssetResponse, error) {
	if err := requireManager(actor); err != nil {
		return AssetResponse{}, err
	}
	assetID, err := uuid.Parse(id)
	if err != nil {
		return AssetResponse{}, fmt.Errorf("invalid asset id: %w", err)
	}

	var asset model.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssetResponse{}, err
		}
		return AssetResponse{}, fmt.Errorf("database error: %w", err)
	}

	asset.Name = req.Name
	asset.Manufacturer = req.Manufacturer
	asset.SerialNumber = req.SerialNumber
	asset.Area = req.Area
	asset.Notes = req.Notes
	if req.Status != "" {
		asset.Status = req.Status
	}

	if err := s.db.WithContext(ctx).Save(&asset).Error; err != nil {
		return AssetResponse{}, fmt.Errorf("failed to update asset: %w", err)
	}
	return toAssetResponse(&asset), nil
}

func (s *assetService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	assetID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid asset id: %w", err)
	}

	// Assets with open work cannot disappear from under their work orders
	var open int64
	if err := s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Where("asset_id = ? AND status NOT IN ?", assetID,
			[]model.WorkOrderStatus{model.WorkOrderStatusClosed, model.WorkOrderStatusCanceled}).
		Count(&open).Error; err != nil {
		return fmt.Errorf("failed to check open work orders: %w", err)
	}
	if open > 0 {
		return guardViolation("asset has %d open work orders", open)
	}

	if err := s.db.WithContext(ctx).Delete(&model.Asset{}, "id = ?", assetID).Error; err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

func toAssetResponse(asset *model.Asset) AssetResponse {
	return AssetResponse{
		ID:           asset.ID.String(),
		Code:         asset.Code,
		Name:         asset.Name,
		Manufacturer: asset.Manufacturer,
		SerialNumber: asset.SerialNumber,
		Area:         asset.Area,
		Status:       string(asset.Status),
		Notes:        asset.Notes,
	}
}
