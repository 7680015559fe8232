package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
)

type mockContractStore struct {
	mock.Mock
}

func (m *mockContractStore) Create(ctx context.Context, c *models.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractStore) ListWithStaleSubmissions(ctx context.Context, before time.Time) ([]models.Contract, error) {
	args := m.Called(ctx, before)
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractStore) Save(ctx context.Context, c *models.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type mockLedgerStore struct {
	mock.Mock
}

func (m *mockLedgerStore) FindOpenFunding(ctx context.Context, contractID uuid.UUID, milestoneID *uuid.UUID) (*models.ContractTransaction, error) {
	args := m.Called(ctx, contractID, milestoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractTransaction), args.Error(1)
}

func (m *mockLedgerStore) ListOpenFunding(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.ContractTransaction), args.Error(1)
}

func (m *mockLedgerStore) CountOpenFunding(ctx context.Context, contractID uuid.UUID) (int, error) {
	args := m.Called(ctx, contractID)
	return args.Int(0), args.Error(1)
}

func (m *mockLedgerStore) Totals(ctx context.Context, contractID uuid.UUID) (*models.LedgerTotals, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerTotals), args.Error(1)
}

func (m *mockLedgerStore) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.ContractTransaction), args.Error(1)
}

// mockSettlementStore запоминает применённые SettlementUnit для проверок.
type mockSettlementStore struct {
	mock.Mock
	applied []repository.SettlementUnit
}

func (m *mockSettlementStore) Apply(ctx context.Context, unit repository.SettlementUnit) error {
	m.applied = append(m.applied, unit)
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *mockSettlementStore) lastUnit() repository.SettlementUnit {
	return m.applied[len(m.applied)-1]
}

type mockCancellationStore struct {
	mock.Mock
}

func (m *mockCancellationStore) Create(ctx context.Context, req *models.CancellationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockCancellationStore) GetPendingByContract(ctx context.Context, contractID uuid.UUID) (*models.CancellationRequest, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationRequest), args.Error(1)
}

func (m *mockCancellationStore) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.CancellationRequest, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.CancellationRequest), args.Error(1)
}

func (m *mockCancellationStore) SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockDisputeStore struct {
	mock.Mock
}

func (m *mockDisputeStore) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeStore) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

// Журнал действий и уведомления в операциях fire-and-forget; тестам
// достаточно заглушек.
type stubActivityLog struct{}

func (stubActivityLog) Log(ctx context.Context, a models.ContractActivity) {}

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, n models.Notification) {}
