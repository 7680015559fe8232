package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *mockNotificationStore) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestNotificationService_List_ClampsLimit(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, nil)
	ctx := context.Background()
	userID := uuid.New()

	store.On("List", ctx, userID, 20, 0, false).Return([]models.Notification{}, nil)

	_, err := svc.List(ctx, userID, 500, 0, false)
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestNotificationService_MarkAsRead_OwnOnly(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, nil)
	ctx := context.Background()

	owner := uuid.New()
	n := &models.Notification{ID: uuid.New(), UserID: owner}
	store.On("GetByID", ctx, n.ID).Return(n, nil)

	err := svc.MarkAsRead(ctx, n.ID, uuid.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")

	store.On("MarkAsRead", ctx, n.ID).Return(nil)
	err = svc.MarkAsRead(ctx, n.ID, owner)
	assert.NoError(t, err)
}

func TestNotificationService_CountUnread(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store, nil)
	ctx := context.Background()
	userID := uuid.New()

	store.On("CountUnread", ctx, userID).Return(3, nil)

	count, err := svc.CountUnread(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}
