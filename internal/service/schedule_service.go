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

type CreateScheduleRequest struct {
	Title             string                  `json:"title" binding:"required"`
	Details           string                  `json:"details"`
	AssetID           string                  `json:"asset_id" binding:"required"`
	Frequency         string                  `json:"frequency" binding:"required"`
	FrequencyDays     int                     `json:"frequency_days" binding:"required,gt=0"`
	FirstDueDate      string                  `json:"first_due_date" binding:"required"` // RFC3339
	Category          model.WorkOrderCategory `json:"category" binding:"omitempty,oneof=MECHANICAL ELECTRICAL HYDRAULIC PNEUMATIC OTHER"`
	Priority          model.Priority          `json:"priority" binding:"omitempty,oneof=HIGH MEDIUM LOW"`
	DefaultAssigneeID string                  `json:"default_assignee_id"`
	Activities        []string                `json:"activities"`
}

type UpdateScheduleRequest struct {
	Title         string         `json:"title"`
	Details       string         `json:"details"`
	Frequency     string         `json:"frequency"`
	FrequencyDays int            `json:"frequency_days" binding:"omitempty,gt=0"`
	Priority      model.Priority `json:"priority" binding:"omitempty,oneof=HIGH MEDIUM LOW"`
}

type ScheduleResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	AssetID         string   `json:"asset_id"`
	AssetName       string   `json:"asset_name"`
	Frequency       string   `json:"frequency"`
	FrequencyDays   int      `json:"frequency_days"`
	NextDueDate     string   `json:"next_due_date"`
	LastRunDate     *string  `json:"last_run_date"`
	DefaultAssignee *string  `json:"default_assignee"`
	Category        string   `json:"category"`
	Priority        string   `json:"priority"`
	Activities      []string `json:"activities"`
	Overdue         bool     `json:"overdue"`
}

// --- Interface ---

type ScheduleService interface {
	Create(ctx context.Context, actor Actor, req CreateScheduleRequest) (ScheduleResponse, error)
	Get(ctx context.Context, id string) (ScheduleResponse, error)
	List(ctx context.Context, page, limit int) ([]ScheduleResponse, int64, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateScheduleRequest) (ScheduleResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error

	// GenerateDueOrders converts every due schedule into an OPEN/ASSIGNED work
	// order and returns the number created. Safe to call repeatedly: schedules
	// that already have a live generated work order in the current due window
	// are skipped.
	GenerateDueOrders(ctx context.Context, actor Actor, now time.Time) (int, error)
}

type scheduleService struct {
	db            *gorm.DB
	notifications NotificationService
}

func NewScheduleService(db *gorm.DB, notifications NotificationService) ScheduleService {
	return &scheduleService{db: db, notifications: notifications}
}

// --- Implementation ---

func (s *scheduleService) Create(ctx context.Context, actor Actor, req CreateScheduleRequest) (ScheduleResponse, error) {
	if err := requireManager(actor); err != nil {
		return ScheduleResponse{}, err
	}

	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("invalid asset id: %w", err)
	}
	firstDue, err := time.Parse(time.RFC3339, req.FirstDueDate)
	if err != nil {
		return ScheduleResponse{}, fmt.Errorf("invalid first_due_date: %w", err)
	}

	var asset model.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScheduleResponse{}, fmt.Errorf("asset not found: %w", err)
		}
		return ScheduleResponse{}, fmt.Errorf("database error: %w", err)
	}

	schedule := model.PreventiveSchedule{
		Title:         req.Title,
		Details:       req.Details,
		AssetID:       asset.ID,
		Frequency:     req.Frequency,
		FrequencyDays: req.FrequencyDays,
		NextDueDate:   firstDue,
		Category:      req.Category,
		Priority:      req.Priority,
	}
	if schedule.Category == "" {
		schedule.Category = model.CategoryMechanical
	}
	if schedule.Priority == "" {
		schedule.Priority = model.PriorityMedium
	}
	if req.DefaultAssigneeID != "" {
		assigneeID, parseErr := uuid.Parse(req.DefaultAssigneeID)
		if parseErr != nil {
			return ScheduleResponse{}, fmt.Errorf("invalid default assignee id: %w", parseErr)
		}
		schedule.DefaultAssigneeID = &assigneeID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if createErr := tx.Create(&schedule).Error; createErr != nil {
			return fmt.Errorf("failed to create schedule: %w", createErr)
		}
		for i, desc := range req.Activities {
			activity := model.ScheduleActivity{ScheduleID: schedule.ID, Position: i, Description: desc}
			if actErr := tx.Create(&activity).Error; actErr != nil {
				return fmt.Errorf("failed to create schedule activity: %w", actErr)
			}
		}
		return nil
	})
	if err != nil {
		return ScheduleResponse{}, err
	}

	return s.Get(ctx, schedule.ID.String())
}

func (s *scheduleService) Get(ctx context.Context, id string) (ScheduleResponse, error) {
	var schedule model.PreventiveSchedule
	if err := s.db.WithContext(ctx).
		Preload("Asset").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&schedule, "id = ?", id).Error; err != nil {
		return ScheduleResponse{}, err
	}
	return toScheduleResponse(&schedule), nil
}

func (s *scheduleService) List(ctx context.Context, page, limit int) ([]ScheduleResponse, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.PreventiveSchedule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	p := pagination.Clamp(page, limit)

	var schedules []model.PreventiveSchedule
	if err := s.db.WithContext(ctx).
		Preload("Asset").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("next_due_date ASC").
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	res := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		res = append(res, toScheduleResponse(&schedules[i]))
	}
	return res, total, nil
}

func (s *scheduleService) Update(ctx context.Context, actor Actor, id string, req UpdateScheduleRequest) (ScheduleResponse, error) {
	if err := requireManager(actor); err != nil {
		return ScheduleResponse{}, err
	}

	var schedule model.PreventiveSchedule
	if err := s.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		return ScheduleResponse{}, err
	}

	if req.Title != "" {
		schedule.Title = req.Title
	}
	if req.Details != "" {
		schedule.Details = req.Details
	}
	if req.Frequency != "" {
		schedule.Frequency = req.Frequency
	}
	if req.FrequencyDays > 0 {
		schedule.FrequencyDays = req.FrequencyDays
	}
	if req.Priority != "" {
		schedule.Priority = req.Priority
	}

	if err := s.db.WithContext(ctx).Save(&schedule).Error; err != nil {
		return ScheduleResponse{}, fmt.Errorf("failed to update schedule: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *scheduleService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PreventiveSchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *scheduleService) GenerateDueOrders(ctx context.Context, actor Actor, now time.Time) (int, error) {
	if err := requireManager(actor); err != nil {
		return 0, err
	}

	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []model.PreventiveSchedule
		if findErr := tx.
			Preload("Asset").
			Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Where("next_due_date <= ?", now).
			Find(&due).Error; findErr != nil {
			return fmt.Errorf("failed to load due schedules: %w", findErr)
		}

		for i := range due {
			schedule := &due[i]

			// NextDueDate only advances at closure, so a schedule stays "due"
			// until its generated work order is closed. Skip schedules that
			// already have a live generated order to keep this idempotent.
			var live int64
			if countErr := tx.Model(&model.WorkOrder{}).
				Where("origin_schedule_id = ? AND status NOT IN ?", schedule.ID,
					[]model.WorkOrderStatus{model.WorkOrderStatusClosed, model.WorkOrderStatusCanceled}).
				Count(&live).Error; countErr != nil {
				return fmt.Errorf("failed to check live orders for schedule %s: %w", schedule.ID, countErr)
			}
			if live > 0 {
				continue
			}

			code, codeErr := nextWorkOrderCode(tx)
			if codeErr != nil {
				return fmt.Errorf("failed to generate work order code: %w", codeErr)
			}

			wo := model.WorkOrder{
				Code:             code,
				Title:            schedule.Title,
				Details:          schedule.Details,
				Type:             model.WorkOrderTypeRoutine,
				Category:         schedule.Category,
				Priority:         schedule.Priority,
				Status:           model.WorkOrderStatusOpen,
				AssetID:          schedule.AssetID,
				OriginScheduleID: &schedule.ID,
			}
			if schedule.Asset != nil {
				wo.AssetName = schedule.Asset.Name
			}
			if schedule.DefaultAssigneeID != nil {
				wo.AssignedToID = schedule.DefaultAssigneeID
				wo.Status = model.WorkOrderStatusAssigned
			}

			if createErr := tx.Create(&wo).Error; createErr != nil {
				return fmt.Errorf("failed to create work order for schedule %s: %w", schedule.ID, createErr)
			}

			for j := range schedule.Activities {
				item := model.ChecklistItem{
					WorkOrderID: wo.ID,
					Position:    j,
					Description: schedule.Activities[j].Description,
				}
				if itemErr := tx.Create(&item).Error; itemErr != nil {
					return fmt.Errorf("failed to copy schedule activity: %w", itemErr)
				}
			}

			created++
		}

		if created > 0 {
			entry := model.AuditLog{
				UserID:   &actor.ID,
				Action:   model.ActionGenerateDueWork,
				EntityID: "",
				Details:  fmt.Sprintf(`{"created": %d}`, created),
			}
			if auditErr := tx.Create(&entry).Error; auditErr != nil {
				return fmt.Errorf("failed to write audit log: %w", auditErr)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// --- Helpers ---

func toScheduleResponse(schedule *model.PreventiveSchedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:            schedule.ID.String(),
		Title:         schedule.Title,
		AssetID:       schedule.AssetID.String(),
		Frequency:     schedule.Frequency,
		FrequencyDays: schedule.FrequencyDays,
		NextDueDate:   schedule.NextDueDate.Format(time.RFC3339),
		Category:      string(schedule.Category),
		Priority:      string(schedule.Priority),
		Overdue:       schedule.IsDue(time.Now()),
	}
	if schedule.Asset != nil {
		resp.AssetName = schedule.Asset.Name
	}
	if schedule.LastRunDate != nil {
		s := schedule.LastRunDate.Format(time.RFC3339)
		resp.LastRunDate = &s
	}
	if schedule.DefaultAssigneeID != nil {
		s := schedule.DefaultAssigneeID.String()
		resp.DefaultAssignee = &s
	}
	for _, a := range schedule.Activities {
		resp.Activities = append(resp.Activities, a.Description)
	}
	return resp
}
