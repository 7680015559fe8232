package service

import (
	"fmt"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// remainingRevisions возвращает остаток правок для сдачи работы.
// Набор схем оплаты закрыт, поэтому правило выбирается исчерпывающим
// switch, а не реестром стратегий: fixed контракты ведут единый счётчик
// на контракт, milestone контракты — отдельный лимит на веху. Счётчики
// не пересекаются: для сдачи применяется ровно один из них.
func remainingRevisions(c *models.Contract, m *models.ContractMilestone, d *models.Deliverable) (int, error) {
	switch c.PaymentType {
	case models.PaymentTypeFixed:
		return c.RevisionsAllowed - c.RevisionsUsed, nil
	case models.PaymentTypeMilestones:
		if m == nil {
			return 0, apperror.New(apperror.ErrCodeInternal, "веха обязательна для milestone контракта")
		}
		return m.RevisionsAllowed - d.RevisionsRequested, nil
	case models.PaymentTypeHourly:
		return 0, apperror.New(apperror.ErrCodeBadRequest, "hourly контракты не принимают сдачи работ")
	default:
		return 0, apperror.New(apperror.ErrCodeInternal, fmt.Sprintf("неизвестная схема оплаты %q", c.PaymentType))
	}
}

// nextDeliverableVersion выдаёт строго возрастающий номер сдачи внутри
// контракта или вехи.
func nextDeliverableVersion(deliverables []models.Deliverable) int {
	max := 0
	for i := range deliverables {
		if deliverables[i].Version > max {
			max = deliverables[i].Version
		}
	}
	return max + 1
}
