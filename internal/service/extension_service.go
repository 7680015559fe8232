package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
)

// ExtensionService ведёт переносы сроков: по дедлайну контракта и по
// ожидаемой дате сдачи вехи. Одновременно открыт не более чем один
// запрос на объект.
type ExtensionService struct {
	contracts ContractStore
	activity  ActivityLogger
	notifier  Notifier
}

func NewExtensionService(contracts ContractStore, activity ActivityLogger, notifier Notifier) *ExtensionService {
	return &ExtensionService{contracts: contracts, activity: activity, notifier: notifier}
}

// RequestExtensionInput — запрос переноса срока.
type RequestExtensionInput struct {
	ContractID       uuid.UUID
	MilestoneID      *uuid.UUID
	ActorID          uuid.UUID
	ProposedDeadline time.Time
	Reason           string
}

// RequestExtension открывает запрос на перенос. Новая дата должна быть
// строго позже текущей; срок меняется только после одобрения.
func (s *ExtensionService) RequestExtension(ctx context.Context, in RequestExtensionInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.FreelancerID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.Status != models.ContractStatusActive && c.Status != models.ContractStatusChangesRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "перенос срока доступен только по работающему контракту")
	}

	req := &models.ExtensionRequest{
		RequestedBy:      in.ActorID,
		ProposedDeadline: in.ProposedDeadline,
		Reason:           in.Reason,
		Status:           models.ExtensionStatusPending,
		CreatedAt:        time.Now(),
	}

	target := "дедлайна контракта"
	if in.MilestoneID == nil {
		if c.ExtensionRequest != nil && c.ExtensionRequest.Status == models.ExtensionStatusPending {
			return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже есть открытый запрос на перенос")
		}
		if c.Deadline != nil && !in.ProposedDeadline.After(*c.Deadline) {
			return nil, apperror.New(apperror.ErrCodeValidation, "новая дата должна быть позже текущего дедлайна")
		}
		c.ExtensionRequest = req
	} else {
		m := c.MilestoneByID(*in.MilestoneID)
		if m == nil {
			return nil, apperror.ErrMilestoneNotFound
		}
		if m.Status == models.MilestoneStatusPaid || m.Status == models.MilestoneStatusCancelled {
			return nil, apperror.New(apperror.ErrCodeConflict, "веха закрыта и не принимает переносы")
		}
		if m.ExtensionRequest != nil && m.ExtensionRequest.Status == models.ExtensionStatusPending {
			return nil, apperror.New(apperror.ErrCodeConflict, "по вехе уже есть открытый запрос на перенос")
		}
		if m.ExpectedDelivery != nil && !in.ProposedDeadline.After(*m.ExpectedDelivery) {
			return nil, apperror.New(apperror.ErrCodeValidation, "новая дата должна быть позже текущей даты сдачи")
		}
		m.ExtensionRequest = req
		target = fmt.Sprintf("срока вехи %q", m.Title)
	}

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.saveError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleFreelancer,
		Action:      models.ActivityExtensionRequested,
		Description: fmt.Sprintf("запрошен перенос %s на %s", target, in.ProposedDeadline.Format("2006-01-02")),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.ClientID,
		Role:      models.RoleClient,
		Title:     "Запрос на перенос срока",
		Message:   fmt.Sprintf("По контракту %s запрошен перенос %s", c.ContractID, target),
		Type:      models.NotificationTypeExtension,
		RelatedID: &c.ID,
	})

	return c, nil
}

// RespondExtensionInput — ответ клиента на запрос переноса.
type RespondExtensionInput struct {
	ContractID  uuid.UUID
	MilestoneID *uuid.UUID
	ActorID     uuid.UUID
	Approve     bool
}

// RespondExtension одобряет либо отклоняет перенос. Одобрение сдвигает
// дедлайн контракта или дату сдачи вехи на предложенную.
func (s *ExtensionService) RespondExtension(ctx context.Context, in RespondExtensionInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != in.ActorID {
		return nil, apperror.ErrForbidden
	}

	now := time.Now()
	outcome := "отклонён"
	target := "дедлайна контракта"

	if in.MilestoneID == nil {
		req := c.ExtensionRequest
		if req == nil || req.Status != models.ExtensionStatusPending {
			return nil, apperror.New(apperror.ErrCodeNotFound, "открытый запрос на перенос не найден")
		}
		req.RespondedAt = &now
		if in.Approve {
			req.Status = models.ExtensionStatusApproved
			deadline := req.ProposedDeadline
			c.Deadline = &deadline
			outcome = "одобрен"
		} else {
			req.Status = models.ExtensionStatusRejected
		}
	} else {
		m := c.MilestoneByID(*in.MilestoneID)
		if m == nil {
			return nil, apperror.ErrMilestoneNotFound
		}
		req := m.ExtensionRequest
		if req == nil || req.Status != models.ExtensionStatusPending {
			return nil, apperror.New(apperror.ErrCodeNotFound, "открытый запрос на перенос не найден")
		}
		req.RespondedAt = &now
		if in.Approve {
			req.Status = models.ExtensionStatusApproved
			delivery := req.ProposedDeadline
			m.ExpectedDelivery = &delivery
			outcome = "одобрен"
		} else {
			req.Status = models.ExtensionStatusRejected
		}
		target = fmt.Sprintf("срока вехи %q", m.Title)
	}

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.saveError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityExtensionResponded,
		Description: fmt.Sprintf("перенос %s %s", target, outcome),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Ответ на запрос переноса",
		Message:   fmt.Sprintf("Перенос %s по контракту %s %s", target, c.ContractID, outcome),
		Type:      models.NotificationTypeExtension,
		RelatedID: &c.ID,
	})

	return c, nil
}

func (s *ExtensionService) loadContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return c, nil
}

func (s *ExtensionService) saveError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperror.New(apperror.ErrCodeConflict, "контракт изменён параллельно, повторите запрос")
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить изменения")
}
