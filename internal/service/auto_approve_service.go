package service

import (
	"context"
	"time"

	"github.com/ignatzorin/freelance-contracts/internal/goroutine"
	"github.com/ignatzorin/freelance-contracts/internal/logger"
	"github.com/ignatzorin/freelance-contracts/internal/models"
)

// AutoApprover периодически подтверждает сдачи, которые клиент
// не проверил за отведённое окно. Идёт тем же путём, что и ручное
// подтверждение, поэтому гонка с клиентом безопасна: повторная попытка
// упрётся в идемпотентные ключи журнала.
type AutoApprover struct {
	settlements *SettlementService
	contracts   ContractStore
	window      time.Duration
	interval    time.Duration
}

func NewAutoApprover(settlements *SettlementService, contracts ContractStore, window, interval time.Duration) *AutoApprover {
	return &AutoApprover{
		settlements: settlements,
		contracts:   contracts,
		window:      window,
		interval:    interval,
	}
}

// Start запускает фоновый цикл до отмены контекста.
func (a *AutoApprover) Start(ctx context.Context) {
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Sweep(ctx)
			}
		}
	})
}

// Sweep обрабатывает один проход: находит контракты с зависшими сдачами
// и подтверждает их от имени клиента. Сбой по одному контракту не
// останавливает остальные.
func (a *AutoApprover) Sweep(ctx context.Context) {
	stale, err := a.contracts.ListWithStaleSubmissions(ctx, time.Now().Add(-a.window))
	if err != nil {
		logger.Log.WithError(err).Error("автоподтверждение: не удалось выбрать контракты")
		return
	}

	for i := range stale {
		c := &stale[i]
		if err := a.approveStale(ctx, c); err != nil {
			logger.Log.WithError(err).WithField("contract_id", c.ID).
				Warn("автоподтверждение: контракт пропущен")
		}
	}
}

// approveStale подтверждает все просроченные сдачи одного контракта.
func (a *AutoApprover) approveStale(ctx context.Context, c *models.Contract) error {
	cutoff := time.Now().Add(-a.window)

	switch c.PaymentType {
	case models.PaymentTypeFixed:
		for i := range c.Deliverables {
			d := &c.Deliverables[i]
			if d.Status != models.DeliverableStatusSubmitted || d.SubmittedAt.After(cutoff) {
				continue
			}
			_, err := a.settlements.ApproveDeliverable(ctx, ApproveDeliverableInput{
				ContractID:    c.ID,
				DeliverableID: d.ID,
				ActorID:       c.ClientID,
				Auto:          true,
			})
			return err
		}
	case models.PaymentTypeMilestones:
		for i := range c.Milestones {
			m := &c.Milestones[i]
			if m.Status != models.MilestoneStatusSubmitted {
				continue
			}
			for j := range m.Deliverables {
				d := &m.Deliverables[j]
				if d.Status != models.DeliverableStatusSubmitted || d.SubmittedAt.After(cutoff) {
					continue
				}
				_, err := a.settlements.ApproveMilestoneDeliverable(ctx, ApproveMilestoneDeliverableInput{
					ContractID:    c.ID,
					MilestoneID:   m.ID,
					DeliverableID: d.ID,
					ActorID:       c.ClientID,
					Auto:          true,
				})
				return err
			}
		}
	}
	return nil
}
