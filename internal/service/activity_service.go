package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/logger"
	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
)

// ActivityStore описывает хранилище журнала действий.
type ActivityStore interface {
	Add(ctx context.Context, a *models.ContractActivity) error
	ListByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.ContractActivity, error)
}

// ActivityService ведёт журнал действий по контракту. Запись не должна
// ронять бизнес-операцию: сбой логируется и проглатывается.
type ActivityService struct {
	store     ActivityStore
	contracts ContractStore
}

func NewActivityService(store ActivityStore, contracts ContractStore) *ActivityService {
	return &ActivityService{store: store, contracts: contracts}
}

// Log добавляет запись в журнал.
func (s *ActivityService) Log(ctx context.Context, a models.ContractActivity) {
	if err := s.store.Add(ctx, &a); err != nil {
		logger.Log.WithError(err).WithField("contract_id", a.ContractID).
			Error("не удалось записать действие в журнал")
	}
}

// ListByContract возвращает журнал контракта его стороне в
// хронологическом порядке.
func (s *ActivityService) ListByContract(ctx context.Context, contractID, actorID uuid.UUID, role string, limit, offset int) ([]models.ContractActivity, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	if !isParty(c, actorID) && role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListByContract(ctx, contractID, limit, offset)
}
