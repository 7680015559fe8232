package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

type mockActivityStore struct {
	mock.Mock
}

func (m *mockActivityStore) Add(ctx context.Context, a *models.ContractActivity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockActivityStore) ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.ContractActivity, error) {
	args := m.Called(ctx, contractID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ContractActivity), args.Error(1)
}

func TestActivityService_Log_SwallowsStoreError(t *testing.T) {
	store := new(mockActivityStore)
	svc := NewActivityService(store, new(mockContractStore))

	store.On("Add", mock.Anything, mock.AnythingOfType("*models.ContractActivity")).
		Return(errors.New("connection reset"))

	svc.Log(context.Background(), models.ContractActivity{
		ContractID: uuid.New(),
		Action:     models.ActivityContractFunded,
	})

	store.AssertExpectations(t)
}

func TestActivityService_ListByContract_ClampsLimit(t *testing.T) {
	store := new(mockActivityStore)
	contracts := new(mockContractStore)
	svc := NewActivityService(store, contracts)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	store.On("ListByContract", ctx, c.ID, 50, 0).
		Return([]models.ContractActivity{{ContractID: c.ID}}, nil)

	items, err := svc.ListByContract(ctx, c.ID, c.ClientID, models.RoleClient, 5000, 0)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	store.AssertExpectations(t)
}

func TestActivityService_ListByContract_OutsiderForbidden(t *testing.T) {
	store := new(mockActivityStore)
	contracts := new(mockContractStore)
	svc := NewActivityService(store, contracts)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ListByContract(ctx, c.ID, uuid.New(), models.RoleFreelancer, 20, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")
	store.AssertNotCalled(t, "ListByContract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
