package service

import (
	"context"
	"errors"
	"fmt"

	"cmms-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitEWORequest struct {
	CauseAnalysis    string `json:"cause_analysis" binding:"required"`
	AppliedSolution  string `json:"applied_solution" binding:"required"`
	PreventiveAction string `json:"preventive_action"`
	NeedsFollowUp    bool   `json:"needs_follow_up"`
	FollowUpDetail   string `json:"follow_up_detail"`
}

type EWOResponse struct {
	ID               string  `json:"id"`
	WorkOrderID      string  `json:"work_order_id"`
	CauseAnalysis    string  `json:"cause_analysis"`
	AppliedSolution  string  `json:"applied_solution"`
	PreventiveAction string  `json:"preventive_action"`
	NeedsFollowUp    bool    `json:"needs_follow_up"`
	FollowUpDetail   string  `json:"follow_up_detail"`
	SubmittedByID    string  `json:"submitted_by_id"`
	FollowUpOrderID  *string `json:"follow_up_order_id,omitempty"`
}

// EWODrafter proposes report text from the work order history. Drafts are
// suggestions only; submission always goes through the technician.
type EWODrafter interface {
	DraftEWO(ctx context.Context, wo *model.WorkOrder) (SubmitEWORequest, error)
}

// --- Interface ---

type EWOService interface {
	// Submit files (or refiles) the report for a work order and flips the
	// closure guard flag atomically with it. A follow-up request work order
	// is spawned when the report asks for one.
	Submit(ctx context.Context, actor Actor, workOrderID string, req SubmitEWORequest) (EWOResponse, error)
	GetByWorkOrder(ctx context.Context, workOrderID string) (EWOResponse, error)

	// Draft returns a pre-filled report proposal without persisting anything
	Draft(ctx context.Context, workOrderID string) (SubmitEWORequest, error)
}

type ewoService struct {
	db            *gorm.DB
	notifications NotificationService
	drafter       EWODrafter
}

func NewEWOService(db *gorm.DB, notifications NotificationService, drafter EWODrafter) EWOService {
	return &ewoService{db: db, notifications: notifications, drafter: drafter}
}

// --- Implementation ---

func (s *ewoService) Submit(ctx context.Context, actor Actor, workOrderID string, req SubmitEWORequest) (EWOResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return EWOResponse{}, fmt.Errorf("invalid work order id: %w", err)
	}

	var ewo model.EWO
	var followUp *model.WorkOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo model.WorkOrder
		if findErr := tx.First(&wo, "id = ?", woID).Error; findErr != nil {
			return fmt.Errorf("work order not found: %w", findErr)
		}
		if wo.IsTerminal() {
			return guardViolation("work order %s is %s, reports are filed before closure", wo.Code, wo.Status)
		}

		// One report per work order; a resubmission updates it in place
		findErr := tx.Where("work_order_id = ?", wo.ID).First(&ewo).Error
		switch {
		case findErr == nil:
			// keep ID, overwrite content
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			ewo = model.EWO{WorkOrderID: wo.ID}
		default:
			return fmt.Errorf("failed to look up report: %w", findErr)
		}

		ewo.CauseAnalysis = req.CauseAnalysis
		ewo.AppliedSolution = req.AppliedSolution
		ewo.PreventiveAction = req.PreventiveAction
		ewo.NeedsFollowUp = req.NeedsFollowUp
		ewo.FollowUpDetail = req.FollowUpDetail
		ewo.SubmittedByID = actor.ID
		if saveErr := tx.Save(&ewo).Error; saveErr != nil {
			return fmt.Errorf("failed to save report: %w", saveErr)
		}

		// The guard flag commits with the report; they never diverge
		if updateErr := tx.Model(&wo).Update("ewo_filled", true).Error; updateErr != nil {
			return fmt.Errorf("failed to flag work order: %w", updateErr)
		}

		if req.NeedsFollowUp && wo.FollowUpOfID == nil {
			var existing int64
			if countErr := tx.Model(&model.WorkOrder{}).
				Where("follow_up_of_id = ?", wo.ID).
				Count(&existing).Error; countErr != nil {
				return fmt.Errorf("failed to check follow-up orders: %w", countErr)
			}
			if existing == 0 {
				spawned, spawnErr := s.spawnFollowUp(tx, actor, &wo, req.FollowUpDetail)
				if spawnErr != nil {
					return spawnErr
				}
				followUp = spawned
			}
		}

		entry := model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionSubmitEWO,
			EntityID:   wo.ID.String(),
			EntityName: wo.Title,
			Details:    fmt.Sprintf(`{"needs_follow_up": %t}`, req.NeedsFollowUp),
		}
		if auditErr := tx.Create(&entry).Error; auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return EWOResponse{}, err
	}

	resp := toEWOResponse(&ewo)
	if followUp != nil {
		id := followUp.ID.String()
		resp.FollowUpOrderID = &id
		s.alertManagers(ctx, "Follow-up work order created",
			fmt.Sprintf("%s: %s needs a follow-up intervention", followUp.Code, followUp.Title),
			"/work-orders/"+followUp.ID.String())
	}
	return resp, nil
}

func (s *ewoService) GetByWorkOrder(ctx context.Context, workOrderID string) (EWOResponse, error) {
	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return EWOResponse{}, fmt.Errorf("invalid work order id: %w", err)
	}

	var ewo model.EWO
	if err := s.db.WithContext(ctx).
		Preload("SubmittedBy").
		First(&ewo, "work_order_id = ?", woID).Error; err != nil {
		return EWOResponse{}, err
	}
	return toEWOResponse(&ewo), nil
}

func (s *ewoService) Draft(ctx context.Context, workOrderID string) (SubmitEWORequest, error) {
	if s.drafter == nil {
		return SubmitEWORequest{}, guardViolation("report drafting is not configured")
	}

	woID, err := uuid.Parse(workOrderID)
	if err != nil {
		return SubmitEWORequest{}, fmt.Errorf("invalid work order id: %w", err)
	}

	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).
		Preload("LaborLogs").
		Preload("Parts").
		Preload("Parts.SparePart").
		First(&wo, "id = ?", woID).Error; err != nil {
		return SubmitEWORequest{}, fmt.Errorf("work order not found: %w", err)
	}

	return s.drafter.DraftEWO(ctx, &wo)
}

// --- Helpers ---

// spawnFollowUp creates a pending request tracking the left-over work. The new
// order goes through the normal approval queue.
func (s *ewoService) spawnFollowUp(tx *gorm.DB, actor Actor, origin *model.WorkOrder, detail string) (*model.WorkOrder, error) {
	code, err := nextWorkOrderCode(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate work order code: %w", err)
	}

	followUp := model.WorkOrder{
		Code:          code,
		Title:         fmt.Sprintf("Follow-up: %s", origin.Title),
		Details:       detail,
		Type:          model.WorkOrderTypeRequest,
		Category:      origin.Category,
		Priority:      origin.Priority,
		Status:        model.WorkOrderStatusPendingApproval,
		AssetID:       origin.AssetID,
		AssetName:     origin.AssetName,
		RequestedByID: &actor.ID,
		FollowUpOfID:  &origin.ID,
	}
	if err := tx.Create(&followUp).Error; err != nil {
		return nil, fmt.Errorf("failed to create follow-up work order: %w", err)
	}
	return &followUp, nil
}

func (s *ewoService) alertManagers(ctx context.Context, title, message, link string) {
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

func toEWOResponse(ewo *model.EWO) EWOResponse {
	return EWOResponse{
		ID:               ewo.ID.String(),
		WorkOrderID:      ewo.WorkOrderID.String(),
		CauseAnalysis:    ewo.CauseAnalysis,
		AppliedSolution:  ewo.AppliedSolution,
		PreventiveAction: ewo.PreventiveAction,
		NeedsFollowUp:    ewo.NeedsFollowUp,
		FollowUpDetail:   ewo.FollowUpDetail,
		SubmittedByID:    ewo.SubmittedByID.String(),
	}
}
