package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
)

func newSettlementService(contracts *mockContractStore, ledger *mockLedgerStore, settle *mockSettlementStore) *SettlementService {
	return NewSettlementService(contracts, ledger, settle, stubActivityLog{}, stubNotifier{}, 0.15)
}

func fixedContract(clientID, freelancerID uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CNT-000001",
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Title:        "Разработка лендинга",
		PaymentType:  models.PaymentTypeFixed,
		Budget:       1000,
		Status:       models.ContractStatusActive,
		FundedAmount: 1000,
		Balance:      1000,
	}
}

func TestSettlementService_CreateContract_Fixed(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	contracts.On("Create", ctx, mock.AnythingOfType("*models.Contract")).Return(nil)

	c, err := svc.CreateContract(ctx, CreateContractInput{
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		OfferID:      uuid.New(),
		Title:        "Разработка лендинга",
		PaymentType:  models.PaymentTypeFixed,
		Budget:       1500,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingFunding, c.Status)
	assert.Equal(t, float64(1500), c.Budget)
	contracts.AssertExpectations(t)
}

func TestSettlementService_CreateContract_InvalidPaymentType(t *testing.T) {
	svc := newSettlementService(new(mockContractStore), new(mockLedgerStore), new(mockSettlementStore))

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Title:       "Контракт",
		PaymentType: "subscription",
		Budget:      100,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "схема оплаты")
}

func TestSettlementService_CreateContract_FixedRequiresBudget(t *testing.T) {
	svc := newSettlementService(new(mockContractStore), new(mockLedgerStore), new(mockSettlementStore))

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Title:       "Контракт",
		PaymentType: models.PaymentTypeFixed,
		Budget:      0,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "положительным")
}

func TestSettlementService_CreateContract_MilestoneBudgetIsSum(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	contracts.On("Create", ctx, mock.AnythingOfType("*models.Contract")).Return(nil)

	c, err := svc.CreateContract(ctx, CreateContractInput{
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		OfferID:      uuid.New(),
		Title:        "Поэтапный проект",
		PaymentType:  models.PaymentTypeMilestones,
		Milestones: []MilestoneInput{
			{Title: "Дизайн", Amount: 300.50, RevisionsAllowed: 2},
			{Title: "Вёрстка", Amount: 699.50, RevisionsAllowed: 1},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, float64(1000), c.Budget)
	assert.Len(t, c.Milestones, 2)
	assert.Equal(t, models.MilestoneStatusPendingFunding, c.Milestones[0].Status)
	assert.NotEqual(t, uuid.Nil, c.Milestones[0].ID)
}

func TestSettlementService_CreateContract_MilestonesRequired(t *testing.T) {
	svc := newSettlementService(new(mockContractStore), new(mockLedgerStore), new(mockSettlementStore))

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Title:       "Поэтапный проект",
		PaymentType: models.PaymentTypeMilestones,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "хотя бы одну веху")
}

func TestSettlementService_CreateContract_HourlyRequiresRate(t *testing.T) {
	svc := newSettlementService(new(mockContractStore), new(mockLedgerStore), new(mockSettlementStore))

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Title:       "Поддержка",
		PaymentType: models.PaymentTypeHourly,
		HourlyRate:  50,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ставку и оценку часов")
}

func TestSettlementService_ConfirmFunding_FixedActivates(t *testing.T) {
	contracts := new(mockContractStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), settle)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.Status = models.ContractStatusPendingFunding
	c.FundedAmount = 0
	c.Balance = 0
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{
		ContractID: c.ID,
		Amount:     1000,
		Reference:  "pay_42",
		ActorID:    c.ClientID,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, updated.Status)
	assert.Equal(t, float64(1000), updated.FundedAmount)
	assert.Equal(t, float64(1000), updated.Balance)

	unit := settle.lastUnit()
	assert.Len(t, unit.Entries, 1)
	assert.Equal(t, models.TransactionPurposeFunding, unit.Entries[0].Purpose)
	assert.Equal(t, models.TransactionStatusHeld, unit.Entries[0].Status)
	assert.Equal(t, "funding:pay_42", unit.Entries[0].IdempotencyKey)
	assert.Equal(t, float64(1000), unit.ClientDelta)
}

func TestSettlementService_ConfirmFunding_RejectsNonPositive(t *testing.T) {
	svc := newSettlementService(new(mockContractStore), new(mockLedgerStore), new(mockSettlementStore))

	_, err := svc.ConfirmFunding(context.Background(), ConfirmFundingInput{
		ContractID: uuid.New(),
		Amount:     0,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "положительной")
}

func TestSettlementService_ConfirmFunding_FixedTwiceConflicts(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{ContractID: c.ID, Amount: 1000, ActorID: c.ClientID})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже профинансирован")
}

func TestSettlementService_ConfirmFunding_OutsiderForbidden(t *testing.T) {
	contracts := new(mockContractStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), settle)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.Status = models.ContractStatusPendingFunding
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{
		ContractID: c.ID,
		Amount:     1000,
		ActorID:    uuid.New(),
		ActorRole:  models.RoleFreelancer,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")
	assert.Empty(t, settle.applied)
}

func TestSettlementService_ConfirmFunding_GatewayCredentialAllowed(t *testing.T) {
	contracts := new(mockContractStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), settle)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.Status = models.ContractStatusPendingFunding
	c.FundedAmount = 0
	c.Balance = 0
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{
		ContractID: c.ID,
		Amount:     1000,
		Reference:  "pay_77",
		ActorID:    uuid.New(),
		ActorRole:  models.RoleAdmin,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, updated.Status)
}

func TestSettlementService_ConfirmFunding_MilestoneFundsMilestone(t *testing.T) {
	contracts := new(mockContractStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), settle)
	ctx := context.Background()

	milestoneID := uuid.New()
	c := &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CNT-000002",
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeMilestones,
		Status:       models.ContractStatusPendingFunding,
		Milestones: models.MilestoneList{
			{ID: milestoneID, Title: "Дизайн", Amount: 300, Status: models.MilestoneStatusPendingFunding},
			{ID: uuid.New(), Title: "Вёрстка", Amount: 700, Status: models.MilestoneStatusPendingFunding},
		},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{
		ContractID:  c.ID,
		MilestoneID: &milestoneID,
		Amount:      300,
		ActorID:     c.ClientID,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, updated.Status)
	assert.Equal(t, models.MilestoneStatusFunded, updated.Milestones[0].Status)
	assert.True(t, updated.Milestones[0].IsFunded)
	assert.Equal(t, models.MilestoneStatusPendingFunding, updated.Milestones[1].Status)
	assert.Equal(t, &milestoneID, settle.lastUnit().Entries[0].MilestoneID)
}

func TestSettlementService_ConfirmFunding_MilestoneRequiresMilestoneID(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := &models.Contract{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		PaymentType: models.PaymentTypeMilestones,
		Status:      models.ContractStatusPendingFunding,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ConfirmFunding(ctx, ConfirmFundingInput{ContractID: c.ID, Amount: 300, ActorID: c.ClientID})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "повехово")
}

func TestSettlementService_SubmitDeliverable_VersionsGrow(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.Deliverables = models.DeliverableList{
		{ID: uuid.New(), Version: 1, Status: models.DeliverableStatusChangesRequested},
	}
	c.Status = models.ContractStatusChangesRequested
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.SubmitDeliverable(ctx, SubmitDeliverableInput{
		ContractID: c.ID,
		ActorID:    c.FreelancerID,
		Files:      []models.DeliverableFile{{URL: "https://cdn.example.com/v2.zip", Name: "v2.zip"}},
	})
	assert.NoError(t, err)
	assert.Len(t, updated.Deliverables, 2)
	assert.Equal(t, 2, updated.Deliverables[1].Version)
	assert.Equal(t, models.ContractStatusActive, updated.Status)
	assert.NotNil(t, updated.LastSubmissionAt)
}

func TestSettlementService_SubmitDeliverable_OnlyFreelancer(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.SubmitDeliverable(ctx, SubmitDeliverableInput{
		ContractID: c.ID,
		ActorID:    c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")
}

func TestSettlementService_ApproveDeliverable_PaysWithCommission(t *testing.T) {
	contracts := new(mockContractStore)
	ledger := new(mockLedgerStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, ledger, settle)
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	deliverableID := uuid.New()
	c.Deliverables = models.DeliverableList{
		{ID: deliverableID, Version: 1, Status: models.DeliverableStatusSubmitted, SubmittedAt: time.Now()},
	}
	funding := &models.ContractTransaction{
		ID:         uuid.New(),
		ContractID: c.ID,
		Purpose:    models.TransactionPurposeFunding,
		Amount:     1000,
		Status:     models.TransactionStatusHeld,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	ledger.On("FindOpenFunding", ctx, c.ID, (*uuid.UUID)(nil)).Return(funding, nil)
	ledger.On("CountOpenFunding", ctx, c.ID).Return(1, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.ApproveDeliverable(ctx, ApproveDeliverableInput{
		ContractID:    c.ID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusCompleted, updated.Status)
	assert.Equal(t, float64(1000), updated.TotalPaid)
	assert.Equal(t, float64(0), updated.Balance)
	assert.Equal(t, models.DeliverableStatusApproved, updated.Deliverables[0].Status)

	unit := settle.lastUnit()
	assert.Len(t, unit.Entries, 2)
	assert.Equal(t, models.TransactionPurposeRelease, unit.Entries[0].Purpose)
	assert.Equal(t, float64(1000), unit.Entries[0].Amount)
	assert.Equal(t, models.TransactionPurposeCommission, unit.Entries[1].Purpose)
	assert.Equal(t, float64(150), unit.Entries[1].Amount)
	assert.Equal(t, []uuid.UUID{funding.ID}, unit.ConsumeFunding)
	assert.Equal(t, models.TransactionStatusConsumed, unit.FundingStatus)
	assert.Equal(t, float64(-1000), unit.ClientDelta)
	assert.Equal(t, float64(850), unit.FreelancerShare)
	assert.Equal(t, float64(150), unit.FreelancerCommission)
}

func TestSettlementService_ApproveDeliverable_AlreadyApproved(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	deliverableID := uuid.New()
	c.Deliverables = models.DeliverableList{
		{ID: deliverableID, Status: models.DeliverableStatusApproved},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ApproveDeliverable(ctx, ApproveDeliverableInput{
		ContractID:    c.ID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже подтверждена")
}

func TestSettlementService_ApproveDeliverable_OnlyClient(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ApproveDeliverable(ctx, ApproveDeliverableInput{
		ContractID:    c.ID,
		DeliverableID: uuid.New(),
		ActorID:       c.FreelancerID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")
}

func TestSettlementService_ApproveDeliverable_MissingFundingIsInternal(t *testing.T) {
	contracts := new(mockContractStore)
	ledger := new(mockLedgerStore)
	svc := newSettlementService(contracts, ledger, new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	deliverableID := uuid.New()
	c.Deliverables = models.DeliverableList{
		{ID: deliverableID, Status: models.DeliverableStatusSubmitted},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	ledger.On("FindOpenFunding", ctx, c.ID, (*uuid.UUID)(nil)).Return(nil, repository.ErrFundingNotFound)

	_, err := svc.ApproveDeliverable(ctx, ApproveDeliverableInput{
		ContractID:    c.ID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "funding запись")
}

func TestSettlementService_RequestChanges_ConsumesRevision(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.RevisionsAllowed = 2
	c.RevisionsUsed = 1
	deliverableID := uuid.New()
	c.Deliverables = models.DeliverableList{
		{ID: deliverableID, Status: models.DeliverableStatusSubmitted},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.RequestDeliverableChanges(ctx, RequestChangesInput{
		ContractID:    c.ID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, updated.RevisionsUsed)
	assert.Equal(t, models.ContractStatusChangesRequested, updated.Status)
	assert.Equal(t, models.DeliverableStatusChangesRequested, updated.Deliverables[0].Status)
	assert.Equal(t, 1, updated.Deliverables[0].RevisionsRequested)
}

func TestSettlementService_RequestChanges_LimitExhausted(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.RevisionsAllowed = 1
	c.RevisionsUsed = 1
	deliverableID := uuid.New()
	c.Deliverables = models.DeliverableList{
		{ID: deliverableID, Status: models.DeliverableStatusSubmitted},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RequestDeliverableChanges(ctx, RequestChangesInput{
		ContractID:    c.ID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "лимит правок")
}

func TestSettlementService_ApproveMilestone_LastPaymentCompletes(t *testing.T) {
	contracts := new(mockContractStore)
	ledger := new(mockLedgerStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, ledger, settle)
	ctx := context.Background()

	milestoneID := uuid.New()
	deliverableID := uuid.New()
	c := &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CNT-000003",
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeMilestones,
		Status:       models.ContractStatusActive,
		FundedAmount: 1000,
		TotalPaid:    700,
		Milestones: models.MilestoneList{
			{ID: uuid.New(), Title: "Вёрстка", Amount: 700, Status: models.MilestoneStatusPaid},
			{
				ID: milestoneID, Title: "Дизайн", Amount: 300, Status: models.MilestoneStatusSubmitted,
				Deliverables: []models.Deliverable{
					{ID: deliverableID, Status: models.DeliverableStatusSubmitted},
				},
			},
		},
	}
	funding := &models.ContractTransaction{
		ID:          uuid.New(),
		ContractID:  c.ID,
		MilestoneID: &milestoneID,
		Amount:      300,
		Status:      models.TransactionStatusHeld,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	ledger.On("FindOpenFunding", ctx, c.ID, &milestoneID).Return(funding, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.ApproveMilestoneDeliverable(ctx, ApproveMilestoneDeliverableInput{
		ContractID:    c.ID,
		MilestoneID:   milestoneID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusCompleted, updated.Status)
	assert.Equal(t, models.MilestoneStatusPaid, updated.Milestones[1].Status)
	assert.Equal(t, float64(1000), updated.TotalPaid)

	unit := settle.lastUnit()
	assert.Equal(t, float64(300), unit.Entries[0].Amount)
	assert.Equal(t, float64(45), unit.Entries[1].Amount)
	assert.Equal(t, float64(255), unit.FreelancerShare)
}

func TestSettlementService_ApproveMilestone_PaidOnlyOnce(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	milestoneID := uuid.New()
	c := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeMilestones,
		Status:       models.ContractStatusActive,
		Milestones: models.MilestoneList{
			{ID: milestoneID, Status: models.MilestoneStatusPaid},
		},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ApproveMilestoneDeliverable(ctx, ApproveMilestoneDeliverableInput{
		ContractID:    c.ID,
		MilestoneID:   milestoneID,
		DeliverableID: uuid.New(),
		ActorID:       c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже оплачена")
}

func TestSettlementService_RequestMilestoneChanges_PerMilestoneLimit(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	milestoneID := uuid.New()
	deliverableID := uuid.New()
	c := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeMilestones,
		Status:       models.ContractStatusActive,
		Milestones: models.MilestoneList{
			{
				ID: milestoneID, Status: models.MilestoneStatusSubmitted, RevisionsAllowed: 1,
				Deliverables: []models.Deliverable{
					{ID: deliverableID, Status: models.DeliverableStatusSubmitted, RevisionsRequested: 1},
				},
			},
		},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RequestMilestoneDeliverableChanges(ctx, RequestMilestoneChangesInput{
		ContractID:    c.ID,
		MilestoneID:   milestoneID,
		DeliverableID: deliverableID,
		ActorID:       c.ClientID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "лимит правок по вехе")
}

func TestSettlementService_ActivateHourly_RequiresWeeklyEscrow(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := &models.Contract{
		ID:                    uuid.New(),
		ClientID:              uuid.New(),
		FreelancerID:          uuid.New(),
		PaymentType:           models.PaymentTypeHourly,
		Status:                models.ContractStatusHeld,
		HourlyRate:            50,
		EstimatedHoursPerWeek: 40,
		FundedAmount:          1999,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.ActivateHourlyContract(ctx, c.ID, c.ClientID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "меньше недельной ставки")
}

func TestSettlementService_ActivateHourly_Success(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := &models.Contract{
		ID:                    uuid.New(),
		ClientID:              uuid.New(),
		FreelancerID:          uuid.New(),
		PaymentType:           models.PaymentTypeHourly,
		Status:                models.ContractStatusHeld,
		HourlyRate:            50,
		EstimatedHoursPerWeek: 40,
		FundedAmount:          2000,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.ActivateHourlyContract(ctx, c.ID, c.FreelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, updated.Status)
}

func TestSettlementService_EndHourly_RefundsHeldBalance(t *testing.T) {
	contracts := new(mockContractStore)
	ledger := new(mockLedgerStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, ledger, settle)
	ctx := context.Background()

	c := &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CNT-000004",
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeHourly,
		Status:       models.ContractStatusActive,
		FundedAmount: 2000,
	}
	open := []models.ContractTransaction{
		{ID: uuid.New(), Amount: 2000, Status: models.TransactionStatusHeld},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	ledger.On("Totals", ctx, c.ID).Return(&models.LedgerTotals{TotalFunded: 2000, TotalReleased: 1500}, nil)
	ledger.On("ListOpenFunding", ctx, c.ID).Return(open, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.EndHourlyContract(ctx, c.ID, c.FreelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusCompleted, updated.Status)
	assert.Equal(t, float64(0), updated.Balance)

	unit := settle.lastUnit()
	assert.Len(t, unit.Entries, 1)
	assert.Equal(t, models.TransactionPurposeRefund, unit.Entries[0].Purpose)
	assert.Equal(t, float64(500), unit.Entries[0].Amount)
	assert.Equal(t, models.TransactionStatusRefunded, unit.FundingStatus)
	assert.Equal(t, float64(-500), unit.ClientDelta)
}

func TestSettlementService_EndHourly_NothingHeld(t *testing.T) {
	contracts := new(mockContractStore)
	ledger := new(mockLedgerStore)
	settle := new(mockSettlementStore)
	svc := newSettlementService(contracts, ledger, settle)
	ctx := context.Background()

	c := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeHourly,
		Status:       models.ContractStatusHeld,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	ledger.On("Totals", ctx, c.ID).Return(&models.LedgerTotals{}, nil)
	settle.On("Apply", ctx, mock.AnythingOfType("repository.SettlementUnit")).Return(nil)

	updated, err := svc.EndHourlyContract(ctx, c.ID, c.FreelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusCompleted, updated.Status)
	assert.Empty(t, settle.lastUnit().Entries)
}

func TestSettlementService_LogTimesheet_RequiresActive(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeHourly,
		Status:       models.ContractStatusHeld,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.LogTimesheet(ctx, LogTimesheetInput{
		ContractID: c.ID,
		ActorID:    c.FreelancerID,
		WeekStart:  time.Now(),
		Hours:      20,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не в активном статусе")
}

func TestSettlementService_SaveVersionConflict(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(repository.ErrVersionConflict)

	_, err := svc.SubmitDeliverable(ctx, SubmitDeliverableInput{
		ContractID: c.ID,
		ActorID:    c.FreelancerID,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "изменён параллельно")
}

func TestSettlementService_GetContract_ForbiddenForOutsider(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.GetContract(ctx, c.ID, uuid.New(), models.RoleClient)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")

	got, err := svc.GetContract(ctx, c.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestSettlementService_CollectDeliverableFiles(t *testing.T) {
	contracts := new(mockContractStore)
	svc := newSettlementService(contracts, new(mockLedgerStore), new(mockSettlementStore))
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.Deliverables = models.DeliverableList{
		{Files: []models.DeliverableFile{{URL: "https://cdn.example.com/a.zip", Name: "a.zip"}}},
	}
	c.Milestones = models.MilestoneList{
		{Deliverables: []models.Deliverable{
			{Files: []models.DeliverableFile{{URL: "https://cdn.example.com/b.zip", Name: "b.zip"}}},
		}},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	files, err := svc.CollectDeliverableFiles(ctx, c.ID, c.ClientID, models.RoleClient)
	assert.NoError(t, err)
	assert.Len(t, files, 2)
}
