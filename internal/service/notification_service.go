package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/goroutine"
	"github.com/ignatzorin/freelance-contracts/internal/logger"
	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// NotificationStore описывает хранилище уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Broadcaster доставляет событие подключённым клиентам пользователя.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и рассылает их по websocket.
// Доставка fire-and-forget: сбой не влияет на вызвавшую операцию.
type NotificationService struct {
	store NotificationStore
	hub   Broadcaster
}

func NewNotificationService(store NotificationStore, hub Broadcaster) *NotificationService {
	return &NotificationService{store: store, hub: hub}
}

// Notify сохраняет уведомление и отправляет его получателю.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	goroutine.SafeGo(func() {
		saved := n
		if err := s.store.Create(context.Background(), &saved); err != nil {
			logger.Log.WithError(err).WithField("user_id", n.UserID).
				Error("не удалось сохранить уведомление")
			return
		}
		if s.hub == nil {
			return
		}
		if err := s.hub.BroadcastToUser(saved.UserID, "notification", saved); err != nil {
			logger.Log.WithError(err).WithField("user_id", saved.UserID).
				Debug("уведомление не доставлено по websocket")
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead помечает уведомление прочитанным; чужие уведомления скрыты.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	if n.UserID != userID {
		return apperror.ErrForbidden
	}
	return s.store.MarkAsRead(ctx, id)
}

// MarkAllAsRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
