package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cmms-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type SuggestRequest struct {
	AssetID  string                  `json:"asset_id" binding:"required"`
	Category model.WorkOrderCategory `json:"category" binding:"omitempty,oneof=MECHANICAL ELECTRICAL HYDRAULIC PNEUMATIC OTHER AI_SUGGESTION"`
	Problem  string                  `json:"problem" binding:"required"`
}

type SuggestionResponse struct {
	Available bool   `json:"available"`
	Text      string `json:"text,omitempty"`
	// Draft pre-fills a work order create form in the AI_SUGGESTION category
	Draft *CreateWorkOrderRequest `json:"draft,omitempty"`
}

// --- Interface ---

// SuggestionService proposes likely fixes from the closure history of an
// asset. It doubles as the learning hook on work-order closure and as the
// report drafter; the knowledge base is the closed work orders and their
// reports, so learning is a matter of keeping that history queryable.
type SuggestionService interface {
	Suggest(ctx context.Context, req SuggestRequest) (SuggestionResponse, error)

	ClosureLearner
	EWODrafter
}

type suggestionService struct {
	db      *gorm.DB
	textgen TextGenerator
}

func NewSuggestionService(db *gorm.DB, textgen TextGenerator) SuggestionService {
	return &suggestionService{db: db, textgen: textgen}
}

// --- Implementation ---

func (s *suggestionService) Suggest(ctx context.Context, req SuggestRequest) (SuggestionResponse, error) {
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return SuggestionResponse{}, fmt.Errorf("invalid asset id: %w", err)
	}

	var asset model.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		return SuggestionResponse{}, fmt.Errorf("asset not found: %w", err)
	}

	history, err := s.closureHistory(ctx, assetID, req.Category, 10)
	if err != nil {
		return SuggestionResponse{}, err
	}

	if s.textgen == nil {
		return SuggestionResponse{Available: false}, nil
	}

	prompt := buildSuggestionPrompt(&asset, req.Problem, history)
	text, err := s.textgen.Generate(ctx, prompt)
	if err != nil {
		log.Printf("suggestion generation failed for asset %s: %v", asset.Code, err)
		return SuggestionResponse{Available: false}, nil
	}

	return SuggestionResponse{
		Available: true,
		Text:      text,
		Draft: &CreateWorkOrderRequest{
			Title:    fmt.Sprintf("Suggested fix: %s", truncate(req.Problem, 120)),
			Details:  text,
			AssetID:  asset.ID.String(),
			Category: model.CategoryAISuggestion,
			Priority: model.PriorityMedium,
		},
	}, nil
}

// LearnFromClosure runs after a work order closes. The closed row and its
// report are already the stored knowledge; this hook only surfaces them in
// the log so operators can see the history grow.
func (s *suggestionService) LearnFromClosure(ctx context.Context, wo *model.WorkOrder) {
	var ewo model.EWO
	hasReport := s.db.WithContext(ctx).First(&ewo, "work_order_id = ?", wo.ID).Error == nil
	log.Printf("closure recorded for suggestions: %s (%s, report: %t)", wo.Code, wo.Category, hasReport)
}

// DraftEWO proposes report text from the work order's own history
func (s *suggestionService) DraftEWO(ctx context.Context, wo *model.WorkOrder) (SubmitEWORequest, error) {
	if s.textgen == nil {
		return SubmitEWORequest{}, guardViolation("report drafting is not configured")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Draft a maintenance incident report for work order %s on asset %s.\n", wo.Code, wo.AssetName)
	fmt.Fprintf(&sb, "Problem: %s\nDetails: %s\nLabor hours: %.1f\n", wo.Title, wo.Details, wo.TotalLaborHours())
	for _, p := range wo.Parts {
		if p.SparePart != nil {
			fmt.Fprintf(&sb, "Part used: %s x%d\n", p.SparePart.Name, p.Quantity)
		}
	}
	sb.WriteString("Answer with two short paragraphs: cause analysis, then applied solution.")

	text, err := s.textgen.Generate(ctx, sb.String())
	if err != nil {
		return SubmitEWORequest{}, fmt.Errorf("draft generation failed: %w", err)
	}

	cause, solution := splitDraft(text)
	return SubmitEWORequest{
		CauseAnalysis:   cause,
		AppliedSolution: solution,
	}, nil
}

// --- Helpers ---

type closureCase struct {
	Title    string
	Cause    string
	Solution string
}

func (s *suggestionService) closureHistory(ctx context.Context, assetID uuid.UUID, category model.WorkOrderCategory, limit int) ([]closureCase, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Where("asset_id = ? AND status = ?", assetID, model.WorkOrderStatusClosed)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var orders []model.WorkOrder
	if err := query.Preload("EWO").Order("closed_at DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load closure history: %w", err)
	}

	cases := make([]closureCase, 0, len(orders))
	for _, wo := range orders {
		c := closureCase{Title: wo.Title}
		if wo.EWO != nil {
			c.Cause = wo.EWO.CauseAnalysis
			c.Solution = wo.EWO.AppliedSolution
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func buildSuggestionPrompt(asset *model.Asset, problem string, history []closureCase) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Suggest a likely fix for a fault on machine %s (%s).\n", asset.Name, asset.Manufacturer)
	fmt.Fprintf(&sb, "Reported problem: %s\n", problem)
	if len(history) > 0 {
		sb.WriteString("Past resolved incidents on this machine:\n")
		for _, c := range history {
			fmt.Fprintf(&sb, "- %s", c.Title)
			if c.Cause != "" {
				fmt.Fprintf(&sb, " (cause: %s; fix: %s)", truncate(c.Cause, 200), truncate(c.Solution, 200))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Answer with a short actionable suggestion for the technician.")
	return sb.String()
}

// splitDraft separates the generated text into cause and solution at the
// first blank line; everything goes into the cause when there is none
func splitDraft(text string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(text), "\n\n", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}

// truncate shortens s to at most n runes without splitting a multi-byte
// character
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
