package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmms-backend/internal/model"
	"cmms-backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateComponentRequest struct {
	Code            string              `json:"code" binding:"required"`
	Type            model.ComponentType `json:"type" binding:"required,oneof=SCREW BARREL"`
	NominalDiameter string              `json:"nominal_diameter" binding:"required"` // mm, decimal string
	Warehouse       model.Warehouse     `json:"warehouse" binding:"required,oneof=RETINATO MAGLIATO"`
	Notes           string              `json:"notes"`
}

type AddMeasurementRequest struct {
	Value      string `json:"value" binding:"required"` // mm, decimal string
	MeasuredAt string `json:"measured_at"`              // RFC3339, defaults to now
}

type ReassignComponentRequest struct {
	// Target asset; empty returns the component to its warehouse
	AssetID string `json:"asset_id"`
}

type ComponentFilter struct {
	Type      model.ComponentType
	Warehouse model.Warehouse
	AssetID   string
	Scrapped  *bool
	Page      int
	Limit     int
}

type ComponentResponse struct {
	ID              string  `json:"id"`
	Code            string  `json:"code"`
	Type            string  `json:"type"`
	NominalDiameter string  `json:"nominal_diameter"`
	Status          string  `json:"status"`
	IsScrapped      bool    `json:"is_scrapped"`
	Warehouse       string  `json:"warehouse"`
	AssignedAssetID *string `json:"assigned_asset_id"`
	LastMeasurement *string `json:"last_measurement"`
	MeasuredAt      *string `json:"measured_at"`
}

// ReassignResult documents the swap so callers can surface a confirmation UI
// without the data layer knowing about it
type ReassignResult struct {
	Component ComponentResponse  `json:"component"`
	Evicted   *ComponentResponse `json:"evicted,omitempty"`
}

// --- Interface ---

type ComponentService interface {
	Create(ctx context.Context, actor Actor, req CreateComponentRequest) (ComponentResponse, error)
	Get(ctx context.Context, id string) (*model.Component, error)
	List(ctx context.Context, filter ComponentFilter) ([]ComponentResponse, int64, error)

	// AddMeasurement appends a reading and recomputes the wear status from it.
	// Status is persisted eagerly, never derived at read time.
	AddMeasurement(ctx context.Context, actor Actor, id string, req AddMeasurementRequest) (ComponentResponse, error)

	// Reassign mounts the component on an asset, evicting any component of
	// the same type already mounted there (swap, not rejection), or returns
	// it to its warehouse when no asset is given.
	Reassign(ctx context.Context, actor Actor, id string, req ReassignComponentRequest) (ReassignResult, error)

	// Scrap flags the component; scrapped components are never deleted
	Scrap(ctx context.Context, actor Actor, id string) (ComponentResponse, error)
}

type componentService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewComponentService(db *gorm.DB, notifications NotificationService) ComponentService {
	return &componentService{db: db, notifications: notifications}
}

// --- Implementation ---

func (s *componentService) Create(ctx context.Context, actor Actor, req CreateComponentRequest) (ComponentResponse, error) {
	nominal, err := decimal.NewFromString(req.NominalDiameter)
	if err != nil {
		return ComponentResponse{}, fmt.Errorf("invalid nominal_diameter: %w", err)
	}

	component := model.Component{
		Code:            req.Code,
		Type:            req.Type,
		NominalDiameter: nominal,
		Status:          model.ComponentStatusOptimal,
		Warehouse:       req.Warehouse,
		Notes:           req.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&component).Error; err != nil {
		return ComponentResponse{}, fmt.Errorf("failed to create component: %w", err)
	}
	return toComponentResponse(&component), nil
}

func (s *componentService) Get(ctx context.Context, id string) (*model.Component, error) {
	componentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid component id: %w", err)
	}

	var component model.Component
	if err := s.db.WithContext(ctx).
		Preload("Measurements", func(db *gorm.DB) *gorm.DB { return db.Order("measured_at ASC") }).
		Preload("AssignedAsset").
		First(&component, "id = ?", componentID).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

func (s *componentService) List(ctx context.Context, filter ComponentFilter) ([]ComponentResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Component{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Warehouse != "" {
		query = query.Where("warehouse = ?", filter.Warehouse)
	}
	if filter.AssetID != "" {
		query = query.Where("assigned_asset_id = ?", filter.AssetID)
	}
	if filter.Scrapped != nil {
		query = query.Where("is_scrapped = ?", *filter.Scrapped)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	p := pagination.Clamp(filter.Page, filter.Limit)

	var components []model.Component
	if err := query.
		Preload("Measurements", func(db *gorm.DB) *gorm.DB { return db.Order("measured_at ASC") }).
		Order("code ASC").
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&components).Error; err != nil {
		return nil, 0, err
	}

	res := make([]ComponentResponse, 0, len(components))
	for i := range components {
		res = append(res, toComponentResponse(&components[i]))
	}
	return res, total, nil
}

func (s *componentService) AddMeasurement(ctx context.Context, actor Actor, id string, req AddMeasurementRequest) (ComponentResponse, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return ComponentResponse{}, fmt.Errorf("invalid measurement value: %w", err)
	}
	measuredAt := time.Now()
	if req.MeasuredAt != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.MeasuredAt)
		if parseErr != nil {
			return ComponentResponse{}, fmt.Errorf("invalid measured_at: %w", parseErr)
		}
		measuredAt = parsed
	}

	var component model.Component
	var prevStatus model.ComponentStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&component, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("component not found: %w", findErr)
		}
		if component.IsScrapped {
			return guardViolation("component %s is scrapped and no longer measured", component.Code)
		}
		prevStatus = component.Status

		measurement := model.Measurement{
			ComponentID: component.ID,
			Value:       value,
			MeasuredAt:  measuredAt,
			OperatorID:  actor.ID,
		}
		if createErr := tx.Create(&measurement).Error; createErr != nil {
			return fmt.Errorf("failed to record measurement: %w", createErr)
		}

		// Status follows the reading with the greatest measured_at, not the
		// insertion order; a backdated entry must not override newer readings
		var latest model.Measurement
		if latestErr := tx.Where("component_id = ?", component.ID).
			Order("measured_at DESC").
			First(&latest).Error; latestErr != nil {
			return fmt.Errorf("failed to load latest measurement: %w", latestErr)
		}
		component.Status = model.ClassifyWear(component.Type, component.NominalDiameter, latest.Value)
		if saveErr := tx.Model(&component).Update("status", component.Status).Error; saveErr != nil {
			return fmt.Errorf("failed to update component status: %w", saveErr)
		}

		entry := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionAddMeasurement,
			EntityID:   component.ID.String(),
			EntityName: component.Code,
			Details:    fmt.Sprintf(`{"value": %q, "status": %q}`, value.String(), component.Status),
		}
		if auditErr := tx.Create(&entry).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ComponentResponse{}, err
	}

	if err := s.db.WithContext(ctx).
		Preload("Measurements", func(db *gorm.DB) *gorm.DB { return db.Order("measured_at ASC") }).
		First(&component, "id = ?", component.ID).Error; err != nil {
		return ComponentResponse{}, err
	}

	// Inventory alert when a component enters a status that demands action;
	// best effort only
	if component.Status != prevStatus &&
		(component.Status == model.ComponentStatusCritical || component.Status == model.ComponentStatusToOrder) {
		s.alertManagers(ctx, fmt.Sprintf("Component %s is %s", component.Code, component.Status),
			fmt.Sprintf("Latest measurement puts %s %s in status %s", component.Type, component.Code, component.Status),
			"/components/"+component.ID.String())
	}

	return toComponentResponse(&component), nil
}

func (s *componentService) Reassign(ctx context.Context, actor Actor, id string, req ReassignComponentRequest) (ReassignResult, error) {
	var component model.Component
	var evicted *model.Component

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&component, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("component not found: %w", findErr)
		}
		if component.IsScrapped {
			return guardViolation("component %s is scrapped and cannot be assigned", component.Code)
		}

		// Empty target: return to warehouse
		if req.AssetID == "" {
			component.AssignedAssetID = nil
			if saveErr := tx.Save(&component).Error; saveErr != nil {
				return fmt.Errorf("failed to update component: %w", saveErr)
			}
			return nil
		}

		assetID, parseErr := uuid.Parse(req.AssetID)
		if parseErr != nil {
			return fmt.Errorf("invalid asset id: %w", parseErr)
		}
		var asset model.Asset
		if findErr := tx.First(&asset, "id = ?", assetID).Error; findErr != nil {
			return fmt.Errorf("asset not found: %w", findErr)
		}

		// At most one component of a given type per asset: the incumbent is
		// swapped back to its warehouse, not rejected
		var incumbent model.Component
		findErr := tx.Where("assigned_asset_id = ? AND type = ? AND id <> ?", assetID, component.Type, component.ID).
			First(&incumbent).Error
		switch {
		case findErr == nil:
			incumbent.AssignedAssetID = nil
			if saveErr := tx.Save(&incumbent).Error; saveErr != nil {
				return fmt.Errorf("failed to evict component %s: %w", incumbent.Code, saveErr)
			}
			evicted = &incumbent
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			// Nothing mounted, plain assignment
		default:
			return fmt.Errorf("failed to check mounted components: %w", findErr)
		}

		component.AssignedAssetID = &assetID
		if saveErr := tx.Save(&component).Error; saveErr != nil {
			return fmt.Errorf("failed to update component: %w", saveErr)
		}

		entry := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionReassignComponent,
			EntityID:   component.ID.String(),
			EntityName: component.Code,
			Details:    fmt.Sprintf(`{"asset_id": %q}`, assetID.String()),
		}
		if auditErr := tx.Create(&entry).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return ReassignResult{}, err
	}

	result := ReassignResult{Component: toComponentResponse(&component)}
	if evicted != nil {
		e := toComponentResponse(evicted)
		result.Evicted = &e
	}
	return result, nil
}

func (s *componentService) Scrap(ctx context.Context, actor Actor, id string) (ComponentResponse, error) {
	var component model.Component
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&component, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("component not found: %w", findErr)
		}
		if component.IsScrapped {
			return guardViolation("component %s is already scrapped", component.Code)
		}

		component.IsScrapped = true
		component.AssignedAssetID = nil
		if saveErr := tx.Save(&component).Error; saveErr != nil {
			return fmt.Errorf("failed to scrap component: %w", saveErr)
		}

		entry := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionScrapComponent,
			EntityID:   component.ID.String(),
			EntityName: component.Code,
			Details:    fmt.Sprintf(`{"status": %q}`, component.Status),
		}
		if auditErr := tx.Create(&entry).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return ComponentResponse{}, err
	}
	return toComponentResponse(&component), nil
}

// --- Helpers ---

// alertManagers notifies every admin and supervisor; failures only log
func (s *componentService) alertManagers(ctx context.Context, title, message, link string) {
	var managers []model.User
	if err := s.db.WithContext(ctx).
		Where("role IN ?", []model.Role{model.RoleAdmin, model.RoleSupervisor}).
		Find(&managers).Error; err != nil {
		return
	}
	for _, m := range managers {
		s.notifications.Notify(ctx, m.ID, title, message, link)
	}
}

func toComponentResponse(component *model.Component) ComponentResponse {
	resp := ComponentResponse{
		ID:              component.ID.String(),
		Code:            component.Code,
		Type:            string(component.Type),
		NominalDiameter: component.NominalDiameter.String(),
		Status:          string(component.Status),
		IsScrapped:      component.IsScrapped,
		Warehouse:       string(component.Warehouse),
	}
	if component.AssignedAssetID != nil {
		s := component.AssignedAssetID.String()
		resp.AssignedAssetID = &s
	}
	if latest := component.LatestMeasurement(); latest != nil {
		v := latest.Value.String()
		at := latest.MeasuredAt.Format(time.RFC3339)
		resp.LastMeasurement = &v
		resp.MeasuredAt = &at
	}
	return resp
}
