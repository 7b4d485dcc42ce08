package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"cmms-backend/internal/model"
	ws "cmms-backend/internal/websocket"
	"cmms-backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationResponse is the API shape of one in-app notification
type NotificationResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Link      string  `json:"link"`
	ReadAt    *string `json:"read_at"`
	CreatedAt string  `json:"created_at"`
}

// NotificationEvent is the payload pushed over the websocket hub
type NotificationEvent struct {
	Event  string               `json:"event"`
	UserID string               `json:"user_id"`
	Data   NotificationResponse `json:"data"`
}

type NotificationService interface {
	// Notify is fire-and-forget: a failed insert or broadcast is logged and
	// never propagated, so lifecycle transitions cannot fail on it.
	Notify(ctx context.Context, userID uuid.UUID, title, message, link string)
	List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID string, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	db  *gorm.DB
	hub *ws.Hub
}

// NewNotificationService creates the notification sink. The hub may be nil
// (tests, CLI contexts); persistence still happens.
func NewNotificationService(db *gorm.DB, hub *ws.Hub) NotificationService {
	return &notificationService{db: db, hub: hub}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, title, message, link string) {
	n := model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("notification insert failed for user %s: %v", userID, err)
		return
	}

	if s.hub == nil {
		return
	}

	payload, err := json.Marshal(NotificationEvent{
		Event:  "notification",
		UserID: userID.String(),
		Data:   toNotificationResponse(n),
	})
	if err != nil {
		log.Printf("notification marshal failed: %v", err)
		return
	}

	// Non-blocking send: a hub with no running dispatch loop must not stall
	// the calling transition
	select {
	case s.hub.Broadcast <- ws.Event{UserID: userID.String(), Payload: payload}:
	default:
		log.Println("notification broadcast skipped: hub busy")
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, errors.New("invalid user id")
	}

	query := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", uid)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Notification
	p := pagination.Clamp(page, limit)
	if err := query.Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	res := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		res = append(res, toNotificationResponse(n))
	}
	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, id string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", &now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", &now).Error
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		s := n.ReadAt.Format(time.RFC3339)
		resp.ReadAt = &s
	}
	return resp
}
