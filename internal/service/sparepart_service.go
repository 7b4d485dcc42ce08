package service

import (
	"context"
	"errors"
	"fmt"

	"cmms-backend/internal/model"
	"cmms-backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateSparePartRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	MinStock int    `json:"min_stock" binding:"min=0"`
	UnitCost string `json:"unit_cost" binding:"required"` // decimal string
}

type UpdateSparePartRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	MinStock int    `json:"min_stock" binding:"min=0"`
	UnitCost string `json:"unit_cost" binding:"required"`
}

type AdjustStockRequest struct {
	// Positive for restock, negative for manual correction
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type SparePartResponse struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	CurrentStock  int    `json:"current_stock"`
	MinStock      int    `json:"min_stock"`
	UnitCost      string `json:"unit_cost"`
	BelowMinStock bool   `json:"below_min_stock"`
}

// --- Interface ---

type SparePartService interface {
	List(ctx context.Context, page, limit int, belowMinOnly bool) ([]SparePartResponse, int64, error)
	Create(ctx context.Context, actor Actor, req CreateSparePartRequest) (SparePartResponse, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateSparePartRequest) (SparePartResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error

	// AdjustStock applies a manual stock correction. Work-order consumption
	// goes through the work order service, not here.
	AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (SparePartResponse, error)
}

type sparePartService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewSparePartService(db *gorm.DB, notifications NotificationService) SparePartService {
	return &sparePartService{db: db, notifications: notifications}
}

// --- Implementation ---

func (s *sparePartService) List(ctx context.Context, page, limit int, belowMinOnly bool) ([]SparePartResponse, int64, error) {
	p := pagination.Clamp(page, limit)

	query := s.db.WithContext(ctx).Model(&model.SparePart{})
	if belowMinOnly {
		query = query.Where("min_stock > 0 AND current_stock < min_stock")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var parts []model.SparePart
	if err := query.Order("name ASC").Offset(p.Offset).Limit(p.Limit).Find(&parts).Error; err != nil {
		return nil, 0, err
	}

	res := make([]SparePartResponse, 0, len(parts))
	for i := range parts {
		res = append(res, toSparePartResponse(&parts[i]))
	}
	return res, total, nil
}

func (s *sparePartService) Create(ctx context.Context, actor Actor, req CreateSparePartRequest) (SparePartResponse, error) {
	if err := requireManager(actor); err != nil {
		return SparePartResponse{}, err
	}
	unitCost, err := decimal.NewFromString(req.UnitCost)
	if err != nil {
		return SparePartResponse{}, fmt.Errorf("invalid unit_cost: %w", err)
	}

	part := model.SparePart{
		SKU:      req.SKU,
		Name:     req.Name,
		Location: req.Location,
		MinStock: req.MinStock,
		UnitCost: unitCost,
	}
	if err := s.db.WithContext(ctx).Create(&part).Error; err != nil {
		return SparePartResponse{}, fmt.Errorf("failed to create spare part: %w", err)
	}
	return toSparePartResponse(&part), nil
}

func (s *sparePartService) Update(ctx context.Context, actor Actor, id string, req UpdateSparePartRequest) (SparePartResponse, error) {
	if err := requireManager(actor); err != nil {
		return SparePartResponse{}, err
	}
	partID, err := uuid.Parse(id)
	if err != nil {
		return SparePartResponse{}, fmt.Errorf("invalid spare part id: %w", err)
	}
	unitCost, err := decimal.NewFromString(req.UnitCost)
	if err != nil {
		return SparePartResponse{}, fmt.Errorf("invalid unit_cost: %w", err)
	}

	var part model.SparePart
	if err := s.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SparePartResponse{}, err
		}
		return SparePartResponse{}, fmt.Errorf("database error: %w", err)
	}

	part.Name = req.Name
	part.Location = req.Location
	part.MinStock = req.MinStock
	part.UnitCost = unitCost
	if err := s.db.WithContext(ctx).Save(&part).Error; err != nil {
		return SparePartResponse{}, fmt.Errorf("failed to update spare part: %w", err)
	}
	return toSparePartResponse(&part), nil
}

func (s *sparePartService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	partID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid spare part id: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&model.SparePart{}, "id = ?", partID).Error; err != nil {
		return fmt.Errorf("failed to delete spare part: %w", err)
	}
	return nil
}

func (s *sparePartService) AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (SparePartResponse, error) {
	if err := requireManager(actor); err != nil {
		return SparePartResponse{}, err
	}

	var part model.SparePart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&part, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("spare part not found: %w", findErr)
		}

		next := part.CurrentStock + req.Delta
		if next < 0 {
			return guardViolation("stock for %s cannot go negative (current: %d, delta: %d)",
				part.Name, part.CurrentStock, req.Delta)
		}

		part.CurrentStock = next
		if updateErr := tx.Model(&part).Update("current_stock", next).Error; updateErr != nil {
			return fmt.Errorf("failed to update stock: %w", updateErr)
		}

		entry := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionAdjustStock,
			EntityID:   part.ID.String(),
			EntityName: part.Name,
			Details:    fmt.Sprintf(`{"delta": %d, "stock": %d, "reason": %q}`, req.Delta, next, req.Reason),
		}
		if auditErr := tx.Create(&entry).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return SparePartResponse{}, err
	}

	if part.IsBelowMinStock() {
		s.alertLowStock(ctx, &part)
	}
	return toSparePartResponse(&part), nil
}

// --- Helpers ---

func (s *sparePartService) alertLowStock(ctx context.Context, part *model.SparePart) {
	var managers []model.User
	if err := s.db.WithContext(ctx).
		Where("role IN ?", []model.Role{model.RoleAdmin, model.RoleSupervisor}).
		Find(&managers).Error; err != nil {
		return
	}
	for _, m := range managers {
		s.notifications.Notify(ctx, m.ID, "Spare part below minimum stock",
			fmt.Sprintf("%s (%s) is at %d, minimum is %d", part.Name, part.SKU, part.CurrentStock, part.MinStock),
			"/spare-parts/"+part.ID.String())
	}
}

func toSparePartResponse(part *model.SparePart) SparePartResponse {
	return SparePartResponse{
		ID:            part.ID.String(),
		SKU:           part.SKU,
		Name:          part.Name,
		Location:      part.Location,
		CurrentStock:  part.CurrentStock,
		MinStock:      part.MinStock,
		UnitCost:      part.UnitCost.String(),
		BelowMinStock: part.IsBelowMinStock(),
	}
}
