package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-contracts/internal/models"
)

func TestExtensionService_Request_ContractDeadline(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	deadline := time.Now().Add(7 * 24 * time.Hour)
	c := fixedContract(uuid.New(), uuid.New())
	c.Deadline = &deadline
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	proposed := deadline.Add(72 * time.Hour)
	updated, err := svc.RequestExtension(ctx, RequestExtensionInput{
		ContractID:       c.ID,
		ActorID:          c.FreelancerID,
		ProposedDeadline: proposed,
		Reason:           "нужно больше времени на тестирование",
	})
	assert.NoError(t, err)
	assert.NotNil(t, updated.ExtensionRequest)
	assert.Equal(t, models.ExtensionStatusPending, updated.ExtensionRequest.Status)
	// Дедлайн не двигается до одобрения.
	assert.Equal(t, deadline, *updated.Deadline)
}

func TestExtensionService_Request_MustBeLater(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	deadline := time.Now().Add(7 * 24 * time.Hour)
	c := fixedContract(uuid.New(), uuid.New())
	c.Deadline = &deadline
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RequestExtension(ctx, RequestExtensionInput{
		ContractID:       c.ID,
		ActorID:          c.FreelancerID,
		ProposedDeadline: deadline.Add(-24 * time.Hour),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "позже текущего дедлайна")
}

func TestExtensionService_Request_OnlyFreelancer(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RequestExtension(ctx, RequestExtensionInput{
		ContractID:       c.ID,
		ActorID:          c.ClientID,
		ProposedDeadline: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "недостаточно прав")
}

func TestExtensionService_Request_PendingBlocksSecond(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	c.ExtensionRequest = &models.ExtensionRequest{Status: models.ExtensionStatusPending}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RequestExtension(ctx, RequestExtensionInput{
		ContractID:       c.ID,
		ActorID:          c.FreelancerID,
		ProposedDeadline: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже есть открытый запрос")
}

func TestExtensionService_Request_ClosedMilestone(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
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

	_, err := svc.RequestExtension(ctx, RequestExtensionInput{
		ContractID:       c.ID,
		MilestoneID:      &milestoneID,
		ActorID:          c.FreelancerID,
		ProposedDeadline: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "веха закрыта")
}

func TestExtensionService_Respond_ApproveMovesDeadline(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	oldDeadline := time.Now().Add(24 * time.Hour)
	proposed := oldDeadline.Add(72 * time.Hour)
	c := fixedContract(uuid.New(), uuid.New())
	c.Deadline = &oldDeadline
	c.ExtensionRequest = &models.ExtensionRequest{
		RequestedBy:      c.FreelancerID,
		ProposedDeadline: proposed,
		Status:           models.ExtensionStatusPending,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.RespondExtension(ctx, RespondExtensionInput{
		ContractID: c.ID,
		ActorID:    c.ClientID,
		Approve:    true,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusApproved, updated.ExtensionRequest.Status)
	assert.Equal(t, proposed, *updated.Deadline)
	assert.NotNil(t, updated.ExtensionRequest.RespondedAt)
}

func TestExtensionService_Respond_RejectKeepsDeadline(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	oldDeadline := time.Now().Add(24 * time.Hour)
	c := fixedContract(uuid.New(), uuid.New())
	c.Deadline = &oldDeadline
	c.ExtensionRequest = &models.ExtensionRequest{
		RequestedBy:      c.FreelancerID,
		ProposedDeadline: oldDeadline.Add(72 * time.Hour),
		Status:           models.ExtensionStatusPending,
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.RespondExtension(ctx, RespondExtensionInput{
		ContractID: c.ID,
		ActorID:    c.ClientID,
		Approve:    false,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ExtensionStatusRejected, updated.ExtensionRequest.Status)
	assert.Equal(t, oldDeadline, *updated.Deadline)
}

func TestExtensionService_Respond_MilestoneDelivery(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	milestoneID := uuid.New()
	oldDelivery := time.Now().Add(24 * time.Hour)
	proposed := oldDelivery.Add(48 * time.Hour)
	c := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		PaymentType:  models.PaymentTypeMilestones,
		Status:       models.ContractStatusActive,
		Milestones: models.MilestoneList{
			{
				ID:               milestoneID,
				Title:            "Дизайн",
				Status:           models.MilestoneStatusFunded,
				ExpectedDelivery: &oldDelivery,
				ExtensionRequest: &models.ExtensionRequest{
					ProposedDeadline: proposed,
					Status:           models.ExtensionStatusPending,
				},
			},
		},
	}
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)
	contracts.On("Save", ctx, c).Return(nil)

	updated, err := svc.RespondExtension(ctx, RespondExtensionInput{
		ContractID:  c.ID,
		MilestoneID: &milestoneID,
		ActorID:     c.ClientID,
		Approve:     true,
	})
	assert.NoError(t, err)
	assert.Equal(t, proposed, *updated.Milestones[0].ExpectedDelivery)
	assert.Equal(t, models.ExtensionStatusApproved, updated.Milestones[0].ExtensionRequest.Status)
}

func TestExtensionService_Respond_NoPendingRequest(t *testing.T) {
	contracts := new(mockContractStore)
	svc := NewExtensionService(contracts, stubActivityLog{}, stubNotifier{})
	ctx := context.Background()

	c := fixedContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, c.ID).Return(c, nil)

	_, err := svc.RespondExtension(ctx, RespondExtensionInput{
		ContractID: c.ID,
		ActorID:    c.ClientID,
		Approve:    true,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не найден")
}
