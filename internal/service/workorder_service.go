package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cmms-backend/internal/model"
	"cmms-backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateWorkOrderRequest struct {
	Title        string                  `json:"title" binding:"required"`
	Details      string                  `json:"details"`
	AssetID      string                  `json:"asset_id" binding:"required"`
	Category     model.WorkOrderCategory `json:"category" binding:"required,oneof=MECHANICAL ELECTRICAL HYDRAULIC PNEUMATIC OTHER AI_SUGGESTION"`
	Priority     model.Priority          `json:"priority" binding:"omitempty,oneof=HIGH MEDIUM LOW"`
	Type         model.WorkOrderType     `json:"type" binding:"omitempty,oneof=FAULT ROUTINE REQUEST"`
	AssignedToID string                  `json:"assigned_to_id"` // Optional technician, managers only
	Checklist    []string                `json:"checklist"`
}

type ApproveWorkOrderRequest struct {
	TechnicianID string         `json:"technician_id" binding:"required"`
	Priority     model.Priority `json:"priority" binding:"required,oneof=HIGH MEDIUM LOW"`
}

type ReviewWorkOrderRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

type AddLaborLogRequest struct {
	Hours    float64 `json:"hours" binding:"required,gt=0"`
	WorkDate string  `json:"work_date"` // RFC3339, defaults to now
	Note     string  `json:"note"`
}

type AddPartRequest struct {
	SparePartID string `json:"spare_part_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

type ChecklistItemRequest struct {
	Description string `json:"description" binding:"required"`
}

type WorkOrderFilter struct {
	Status       model.WorkOrderStatus
	AssetID      string
	AssignedToID string
	Page         int
	Limit        int
}

type WorkOrderResponse struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	Title          string  `json:"title"`
	Details        string  `json:"details"`
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Priority       string  `json:"priority"`
	Status         string  `json:"status"`
	AssetID        string  `json:"asset_id"`
	AssetName      string  `json:"asset_name"`
	RequestedBy    *string `json:"requested_by"`
	AssignedTo     *string `json:"assigned_to"`
	ValidatedBy    *string `json:"validated_by"`
	OriginSchedule *string `json:"origin_schedule"`
	EWOFilled      bool    `json:"ewo_filled"`
	LaborHours     float64 `json:"labor_hours"`
	ChecklistDone  bool    `json:"checklist_done"`
	CreatedAt      string  `json:"created_at"`
	ClosedAt       *string `json:"closed_at"`
}

// ClosureLearner records closed work orders so future suggestions improve.
// Implementations must be best-effort; the lifecycle never depends on them.
type ClosureLearner interface {
	LearnFromClosure(ctx context.Context, wo *model.WorkOrder)
}

// --- Interface ---

type WorkOrderService interface {
	Create(ctx context.Context, actor Actor, req CreateWorkOrderRequest) (WorkOrderResponse, error)
	Get(ctx context.Context, id string) (*model.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]WorkOrderResponse, int64, error)

	Approve(ctx context.Context, actor Actor, id string, req ApproveWorkOrderRequest) (WorkOrderResponse, error)
	Start(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	Pause(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	Resume(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	Complete(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	MarkDone(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	Review(ctx context.Context, actor Actor, id string, req ReviewWorkOrderRequest) (WorkOrderResponse, error)
	Cancel(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)

	AddChecklistItem(ctx context.Context, actor Actor, id string, req ChecklistItemRequest) error
	SetChecklistItem(ctx context.Context, actor Actor, id, itemID string, completed bool) error
	AddLaborLog(ctx context.Context, actor Actor, id string, req AddLaborLogRequest) error
	AddPart(ctx context.Context, actor Actor, id string, req AddPartRequest) error
}

type workOrderService struct {
	db            *gorm.DB
	notifications NotificationService
	learner       ClosureLearner
	// EWO closure guard threshold in labor hours; 0 disables the guard
	ewoThresholdHours float64
}

func NewWorkOrderService(db *gorm.DB, notifications NotificationService, learner ClosureLearner, ewoThresholdHours float64) WorkOrderService {
	return &workOrderService{
		db:                db,
		notifications:     notifications,
		learner:           learner,
		ewoThresholdHours: ewoThresholdHours,
	}
}

// --- Implementation ---

func (s *workOrderService) Create(ctx context.Context, actor Actor, req CreateWorkOrderRequest) (WorkOrderResponse, error) {
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return WorkOrderResponse{}, fmt.Errorf("invalid asset id: %w", err)
	}

	var asset model.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkOrderResponse{}, fmt.Errorf("asset not found: %w", err)
		}
		return WorkOrderResponse{}, fmt.Errorf("database error: %w", err)
	}

	wo := model.WorkOrder{
		Title:         req.Title,
		Details:       req.Details,
		Category:      req.Category,
		Priority:      req.Priority,
		Type:          req.Type,
		AssetID:       asset.ID,
		AssetName:     asset.Name,
		RequestedByID: &actor.ID,
	}
	if wo.Priority == "" {
		wo.Priority = model.PriorityMedium
	}

	if actor.Role.CanManage() {
		// Supervisor-created orders skip the approval queue
		wo.Status = model.WorkOrderStatusOpen
		if wo.Type == "" {
			wo.Type = model.WorkOrderTypeFault
		}
		if req.AssignedToID != "" {
			techID, parseErr := uuid.Parse(req.AssignedToID)
			if parseErr != nil {
				return WorkOrderResponse{}, fmt.Errorf("invalid technician id: %w", parseErr)
			}
			if err := s.ensureTechnician(ctx, techID); err != nil {
				return WorkOrderResponse{}, err
			}
			wo.AssignedToID = &techID
			wo.Status = model.WorkOrderStatusAssigned
		}
	} else {
		// User requests wait for supervisor approval
		wo.Status = model.WorkOrderStatusPendingApproval
		wo.Type = model.WorkOrderTypeRequest
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, codeErr := nextWorkOrderCode(tx)
		if codeErr != nil {
			return fmt.Errorf("failed to generate work order code: %w", codeErr)
		}
		wo.Code = code

		if createErr := tx.Create(&wo).Error; createErr != nil {
			return fmt.Errorf("failed to create work order: %w", createErr)
		}

		for i, desc := range req.Checklist {
			item := model.ChecklistItem{WorkOrderID: wo.ID, Position: i, Description: desc}
			if itemErr := tx.Create(&item).Error; itemErr != nil {
				return fmt.Errorf("failed to create checklist item: %w", itemErr)
			}
		}

		return s.audit(tx, actor, model.ActionCreateWorkOrder, wo.ID.String(), wo.Title, map[string]interface{}{
			"code":   wo.Code,
			"status": wo.Status,
			"asset":  wo.AssetName,
		})
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	if wo.Status == model.WorkOrderStatusAssigned && wo.AssignedToID != nil {
		s.notifications.Notify(ctx, *wo.AssignedToID, "New work order assigned",
			fmt.Sprintf("%s: %s", wo.Code, wo.Title), "/work-orders/"+wo.ID.String())
	}

	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) Get(ctx context.Context, id string) (*model.WorkOrder, error) {
	woID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid work order id: %w", err)
	}

	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Parts").
		Preload("Parts.SparePart").
		Preload("LaborLogs").
		Preload("Timers").
		Preload("EWO").
		Preload("AssignedTo").
		Preload("RequestedBy").
		First(&wo, "id = ?", woID).Error; err != nil {
		return nil, err
	}
	return &wo, nil
}

func (s *workOrderService) List(ctx context.Context, filter WorkOrderFilter) ([]WorkOrderResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if filter.AssignedToID != "" {
		query = query.Where("assigned_to_id = ?", filter.AssignedToID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}

	p := pagination.Clamp(filter.Page, filter.Limit)

	var orders []model.WorkOrder
	if err := query.
		Preload("Checklist").
		Preload("LaborLogs").
		Order("created_at DESC").
		Offset(p.Offset).
		Limit(p.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch work orders: %w", err)
	}

	res := make([]WorkOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toWorkOrderResponse(&orders[i]))
	}
	return res, total, nil
}

// Approve moves a pending user request into the assigned queue. The type is
// forced to FAULT and the assigned technician is notified.
func (s *workOrderService) Approve(ctx context.Context, actor Actor, id string, req ApproveWorkOrderRequest) (WorkOrderResponse, error) {
	if err := requireManager(actor); err != nil {
		return WorkOrderResponse{}, err
	}

	techID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		return WorkOrderResponse{}, fmt.Errorf("invalid technician id: %w", err)
	}

	var wo model.WorkOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusPendingApproval {
			return guardViolation("work order %s is %s, only PENDING_APPROVAL can be approved", wo.Code, wo.Status)
		}
		if ensureErr := s.ensureTechnician(ctx, techID); ensureErr != nil {
			return ensureErr
		}

		wo.Status = model.WorkOrderStatusAssigned
		wo.Type = model.WorkOrderTypeFault
		wo.Priority = req.Priority
		wo.AssignedToID = &techID

		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}

		return s.audit(tx, actor, model.ActionApproveWorkOrder, wo.ID.String(), wo.Title, map[string]interface{}{
			"technician": techID.String(),
			"priority":   req.Priority,
		})
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	s.notifications.Notify(ctx, techID, "New work order assigned",
		fmt.Sprintf("%s: %s", wo.Code, wo.Title), "/work-orders/"+wo.ID.String())

	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) Start(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.Preload("Timers").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusOpen && wo.Status != model.WorkOrderStatusAssigned {
			return guardViolation("cannot start work on a %s work order", wo.Status)
		}

		now := time.Now()
		wo.Status = model.WorkOrderStatusInProgress
		if wo.StartedAt == nil {
			wo.StartedAt = &now
		}
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}

		timer := model.WorkOrderTimer{WorkOrderID: wo.ID, StartedByID: actor.ID, StartedAt: now}
		if timerErr := tx.Create(&timer).Error; timerErr != nil {
			return fmt.Errorf("failed to open timer session: %w", timerErr)
		}

		return s.audit(tx, actor, model.ActionStartWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) Pause(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.Preload("Timers").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusInProgress {
			return guardViolation("cannot pause a %s work order", wo.Status)
		}

		wo.Status = model.WorkOrderStatusOnHold
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}
		if timerErr := closeRunningTimer(tx, &wo); timerErr != nil {
			return timerErr
		}

		return s.audit(tx, actor, model.ActionPauseWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) Resume(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusOnHold {
			return guardViolation("cannot resume a %s work order", wo.Status)
		}

		wo.Status = model.WorkOrderStatusInProgress
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}

		timer := model.WorkOrderTimer{WorkOrderID: wo.ID, StartedByID: actor.ID, StartedAt: time.Now()}
		if timerErr := tx.Create(&timer).Error; timerErr != nil {
			return fmt.Errorf("failed to open timer session: %w", timerErr)
		}

		return s.audit(tx, actor, model.ActionResumeWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return s.reload(ctx, wo.ID)
}

// Complete requires every checklist item to be ticked off
func (s *workOrderService) Complete(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.Preload("Checklist").Preload("Timers").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusInProgress {
			return guardViolation("cannot complete a %s work order", wo.Status)
		}
		if !wo.ChecklistComplete() {
			return guardViolation("checklist incomplete: every item must be completed before closing the task")
		}

		now := time.Now()
		wo.Status = model.WorkOrderStatusCompleted
		wo.CompletedAt = &now
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}
		if timerErr := closeRunningTimer(tx, &wo); timerErr != nil {
			return timerErr
		}

		return s.audit(tx, actor, model.ActionCompleteWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	if wo.RequestedByID != nil {
		s.notifications.Notify(ctx, *wo.RequestedByID, "Work order completed",
			fmt.Sprintf("%s: %s has been completed", wo.Code, wo.Title), "/work-orders/"+wo.ID.String())
	}

	return s.reload(ctx, wo.ID)
}

// MarkDone is the manual "segna come completato" action: the technician hands
// the work order over for supervisor review.
func (s *workOrderService) MarkDone(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusOpen && wo.Status != model.WorkOrderStatusInProgress {
			return guardViolation("cannot mark a %s work order as done", wo.Status)
		}

		wo.Status = model.WorkOrderStatusPendingReview
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}

		return s.audit(tx, actor, model.ActionMarkDoneWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return s.reload(ctx, wo.ID)
}

// Review closes or rejects a work order pending review. Closing enforces the
// EWO guard and, for schedule-generated orders, regenerates the originating
// preventive schedule from the closure time.
func (s *workOrderService) Review(ctx context.Context, actor Actor, id string, req ReviewWorkOrderRequest) (WorkOrderResponse, error) {
	if err := requireManager(actor); err != nil {
		return WorkOrderResponse{}, err
	}

	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.Preload("LaborLogs").Preload("Timers").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.Status != model.WorkOrderStatusPendingReview {
			return guardViolation("work order %s is %s, only PENDING_REVIEW can be reviewed", wo.Code, wo.Status)
		}

		if !req.Approved {
			wo.Status = model.WorkOrderStatusInProgress
			if saveErr := tx.Save(&wo).Error; saveErr != nil {
				return fmt.Errorf("failed to update work order: %w", saveErr)
			}
			return s.audit(tx, actor, model.ActionReviewWorkOrder, wo.ID.String(), wo.Title, map[string]interface{}{
				"approved": false,
				"note":     req.Note,
			})
		}

		// EWO guard: high-labor closures require a filed emergency report first
		if s.ewoThresholdHours > 0 && wo.TotalLaborHours() > s.ewoThresholdHours && !wo.EWOFilled {
			return guardViolation("labor hours %.1f exceed the EWO threshold of %.1f: submit an EWO before closing",
				wo.TotalLaborHours(), s.ewoThresholdHours)
		}

		now := time.Now()
		wo.Status = model.WorkOrderStatusClosed
		wo.ClosedAt = &now
		wo.ValidatedByID = &actor.ID
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}
		if timerErr := closeRunningTimer(tx, &wo); timerErr != nil {
			return timerErr
		}

		// Regenerate the originating schedule: the next cycle starts from the
		// actual completion time, not from the previous due date
		if wo.OriginScheduleID != nil {
			var schedule model.PreventiveSchedule
			if schedErr := tx.First(&schedule, "id = ?", *wo.OriginScheduleID).Error; schedErr != nil {
				return fmt.Errorf("origin schedule not found: %w", schedErr)
			}
			schedule.LastRunDate = &now
			schedule.NextDueDate = now.AddDate(0, 0, schedule.FrequencyDays)
			if schedErr := tx.Save(&schedule).Error; schedErr != nil {
				return fmt.Errorf("failed to regenerate schedule: %w", schedErr)
			}
		}

		return s.audit(tx, actor, model.ActionReviewWorkOrder, wo.ID.String(), wo.Title, map[string]interface{}{
			"approved": true,
			"note":     req.Note,
		})
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	if wo.Status == model.WorkOrderStatusClosed {
		if s.learner != nil {
			s.learner.LearnFromClosure(ctx, &wo)
		}
		if wo.RequestedByID != nil {
			s.notifications.Notify(ctx, *wo.RequestedByID, "Work order closed",
				fmt.Sprintf("%s: %s has been reviewed and closed", wo.Code, wo.Title), "/work-orders/"+wo.ID.String())
		}
	}

	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) Cancel(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	if err := requireManager(actor); err != nil {
		return WorkOrderResponse{}, err
	}

	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr := tx.Preload("Timers").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("work order %s is already %s", wo.Code, wo.Status)
		}

		wo.Status = model.WorkOrderStatusCanceled
		if saveErr := tx.Save(&wo).Error; saveErr != nil {
			return fmt.Errorf("failed to update work order: %w", saveErr)
		}
		if timerErr := closeRunningTimer(tx, &wo); timerErr != nil {
			return timerErr
		}

		return s.audit(tx, actor, model.ActionCancelWorkOrder, wo.ID.String(), wo.Title, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}
	return s.reload(ctx, wo.ID)
}

func (s *workOrderService) AddChecklistItem(ctx context.Context, actor Actor, id string, req ChecklistItemRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.Preload("Checklist").First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("cannot edit the checklist of a %s work order", wo.Status)
		}

		item := model.ChecklistItem{
			WorkOrderID: wo.ID,
			Position:    len(wo.Checklist),
			Description: req.Description,
		}
		if createErr := tx.Create(&item).Error; createErr != nil {
			return fmt.Errorf("failed to create checklist item: %w", createErr)
		}
		return nil
	})
}

func (s *workOrderService) SetChecklistItem(ctx context.Context, actor Actor, id, itemID string, completed bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("cannot edit the checklist of a %s work order", wo.Status)
		}

		var item model.ChecklistItem
		if findErr := tx.First(&item, "id = ? AND work_order_id = ?", itemID, wo.ID).Error; findErr != nil {
			return fmt.Errorf("checklist item not found: %w", findErr)
		}

		item.Completed = completed
		if completed {
			now := time.Now()
			item.CompletedAt = &now
		} else {
			item.CompletedAt = nil
		}
		if saveErr := tx.Save(&item).Error; saveErr != nil {
			return fmt.Errorf("failed to update checklist item: %w", saveErr)
		}
		return nil
	})
}

func (s *workOrderService) AddLaborLog(ctx context.Context, actor Actor, id string, req AddLaborLogRequest) error {
	workDate := time.Now()
	if req.WorkDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.WorkDate)
		if err != nil {
			return fmt.Errorf("invalid work_date: %w", err)
		}
		workDate = parsed
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("cannot log labor on a %s work order", wo.Status)
		}

		entry := model.LaborLog{
			WorkOrderID:  wo.ID,
			TechnicianID: actor.ID,
			Hours:        req.Hours,
			WorkDate:     workDate,
			Note:         req.Note,
		}
		if createErr := tx.Create(&entry).Error; createErr != nil {
			return fmt.Errorf("failed to create labor log: %w", createErr)
		}
		return nil
	})
}

// AddPart consumes spare-part stock for a work order. The stock decrement and
// the consumption record commit atomically.
func (s *workOrderService) AddPart(ctx context.Context, actor Actor, id string, req AddPartRequest) error {
	partID, err := uuid.Parse(req.SparePartID)
	if err != nil {
		return fmt.Errorf("invalid spare part id: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", id).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("cannot consume parts on a %s work order", wo.Status)
		}

		var part model.SparePart
		if findErr := tx.First(&part, "id = ?", partID).Error; findErr != nil {
			return fmt.Errorf("spare part not found: %w", findErr)
		}
		if part.CurrentStock < req.Quantity {
			return guardViolation("insufficient stock for %s (current: %d, requested: %d)",
				part.Name, part.CurrentStock, req.Quantity)
		}

		if updateErr := tx.Model(&part).Update("current_stock", part.CurrentStock-req.Quantity).Error; updateErr != nil {
			return fmt.Errorf("failed to update stock for %s: %w", part.Name, updateErr)
		}

		consumption := model.WorkOrderPart{
			WorkOrderID: wo.ID,
			SparePartID: part.ID,
			Quantity:    req.Quantity,
			UnitCost:    part.UnitCost,
		}
		if createErr := tx.Create(&consumption).Error; createErr != nil {
			return fmt.Errorf("failed to record part consumption: %w", createErr)
		}
		return nil
	})
}

// --- Helpers ---

func (s *workOrderService) ensureTechnician(ctx context.Context, id uuid.UUID) error {
	var tech model.User
	if err := s.db.WithContext(ctx).First(&tech, "id = ?", id).Error; err != nil {
		return fmt.Errorf("technician not found: %w", err)
	}
	return nil
}

// audit writes an audit row inside the caller's transaction
func (s *workOrderService) audit(tx *gorm.DB, actor Actor, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *workOrderService) reload(ctx context.Context, id uuid.UUID) (WorkOrderResponse, error) {
	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).
		Preload("Checklist").
		Preload("LaborLogs").
		First(&wo, "id = ?", id).Error; err != nil {
		return WorkOrderResponse{}, fmt.Errorf("failed to reload work order: %w", err)
	}
	return toWorkOrderResponse(&wo), nil
}

// closeRunningTimer ends the open timer session, if any, recording its duration
func closeRunningTimer(tx *gorm.DB, wo *model.WorkOrder) error {
	timer := wo.RunningTimer()
	if timer == nil {
		return nil
	}
	now := time.Now()
	timer.EndedAt = &now
	timer.DurationMin = int(now.Sub(timer.StartedAt).Minutes())
	if err := tx.Save(timer).Error; err != nil {
		return fmt.Errorf("failed to close timer session: %w", err)
	}
	return nil
}

// nextWorkOrderCode generates sequential codes like WO-20260831-00042
func nextWorkOrderCode(tx *gorm.DB) (string, error) {
	prefix := "WO-" + time.Now().Format("20060102") + "-"

	var count int64
	if err := tx.Model(&model.WorkOrder{}).
		Where("code LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func toWorkOrderResponse(wo *model.WorkOrder) WorkOrderResponse {
	resp := WorkOrderResponse{
		ID:            wo.ID.String(),
		Code:          wo.Code,
		Title:         wo.Title,
		Details:       wo.Details,
		Type:          string(wo.Type),
		Category:      string(wo.Category),
		Priority:      string(wo.Priority),
		Status:        string(wo.Status),
		AssetID:       wo.AssetID.String(),
		AssetName:     wo.AssetName,
		EWOFilled:     wo.EWOFilled,
		LaborHours:    wo.TotalLaborHours(),
		ChecklistDone: wo.ChecklistComplete(),
		CreatedAt:     wo.CreatedAt.Format(time.RFC3339),
	}
	if wo.RequestedByID != nil {
		s := wo.RequestedByID.String()
		resp.RequestedBy = &s
	}
	if wo.AssignedToID != nil {
		s := wo.AssignedToID.String()
		resp.AssignedTo = &s
	}
	if wo.ValidatedByID != nil {
		s := wo.ValidatedByID.String()
		resp.ValidatedBy = &s
	}
	if wo.OriginScheduleID != nil {
		s := wo.OriginScheduleID.String()
		resp.OriginSchedule = &s
	}
	if wo.ClosedAt != nil {
		s := wo.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &s
	}
	return resp
}
