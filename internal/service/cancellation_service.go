package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository"
)

// CancellationStore описывает хранилище запросов на расторжение.
type CancellationStore interface {
	Create(ctx context.Context, req *models.CancellationRequest) error
	GetPendingByContract(ctx context.Context, contractID uuid.UUID) (*models.CancellationRequest, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.CancellationRequest, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) error
}

// DisputeStore описывает хранилище споров.
type DisputeStore interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Dispute, error)
}

// CancellationService отвечает за расторжение контрактов: прямое, по
// соглашению с разделением удержанной суммы и через спор.
type CancellationService struct {
	contracts     ContractStore
	ledger        LedgerStore
	settlements   SettlementStore
	cancellations CancellationStore
	disputes      DisputeStore
	activity      ActivityLogger
	notifier      Notifier
	// disputeWindow ограничивает срок оспаривания условий расторжения
	// с момента создания запроса; 0 отключает ограничение.
	disputeWindow time.Duration
}

func NewCancellationService(
	contracts ContractStore,
	ledger LedgerStore,
	settlements SettlementStore,
	cancellations CancellationStore,
	disputes DisputeStore,
	activity ActivityLogger,
	notifier Notifier,
	disputeWindow time.Duration,
) *CancellationService {
	return &CancellationService{
		contracts:     contracts,
		ledger:        ledger,
		settlements:   settlements,
		cancellations: cancellations,
		disputes:      disputes,
		activity:      activity,
		notifier:      notifier,
		disputeWindow: disputeWindow,
	}
}

// CancelResult — итог прямого расторжения.
type CancelResult struct {
	Contract *models.Contract
	Refunded float64
	// RequiresAgreement выставляется, когда по контракту уже есть сданные
	// работы и расторжение возможно только через взаимное соглашение.
	RequiresAgreement bool
}

// CancelContract выполняет прямое расторжение без согласования. Доступно
// пока по контракту нет сданных работ: эскроу возвращается клиенту
// полностью. При сданных работах возвращает RequiresAgreement.
func (s *CancellationService) CancelContract(ctx context.Context, contractID, actorID uuid.UUID, reason string) (*CancelResult, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) {
		return nil, apperror.ErrForbidden
	}
	if c.Status == models.ContractStatusDisputed {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт заморожен до разрешения спора")
	}
	if c.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт уже завершён")
	}
	if c.Status == models.ContractStatusCancellationRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже открыт запрос на расторжение")
	}
	if c.PaymentType == models.PaymentTypeHourly {
		return nil, apperror.New(apperror.ErrCodeNotImplemented, "расторжение hourly контракта выполняется через завершение")
	}
	if c.HasDeliverables() {
		return &CancelResult{Contract: c, RequiresAgreement: true}, nil
	}

	now := time.Now()
	c.CancelledBy = &actorID
	c.CancelledAt = &now

	unit := repository.SettlementUnit{Contract: c}
	refunded := 0.0

	if c.Status == models.ContractStatusPendingFunding {
		// Деньги ещё не двигались, достаточно смены статуса.
		c.Status = models.ContractStatusCancelled
	} else {
		c.Status = models.ContractStatusCancelled
		c.Balance = 0

		if c.PaymentType == models.PaymentTypeMilestones {
			// Возврат оформляется отдельной записью на каждую
			// профинансированную веху со своим идемпотентным ключом.
			for _, m := range c.EscrowedMilestones() {
				unit.Entries = append(unit.Entries, models.ContractTransaction{
					ContractID:     c.ID,
					MilestoneID:    &m.ID,
					Purpose:        models.TransactionPurposeRefund,
					Amount:         m.Amount,
					ClientID:       c.ClientID,
					FreelancerID:   c.FreelancerID,
					Description:    fmt.Sprintf("Возврат эскроу вехи %q при расторжении", m.Title),
					Status:         models.TransactionStatusCompleted,
					IdempotencyKey: models.SettlementKey(c.ID, &m.ID, models.TransactionPurposeRefund),
				})
				refunded = models.RoundMoney(refunded + m.Amount)
			}
		} else {
			totals, err := s.ledger.Totals(ctx, c.ID)
			if err != nil {
				return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
			}
			if held := totals.Held(); held > 0 {
				refunded = held
				unit.Entries = []models.ContractTransaction{{
					ContractID:     c.ID,
					Purpose:        models.TransactionPurposeRefund,
					Amount:         refunded,
					ClientID:       c.ClientID,
					FreelancerID:   c.FreelancerID,
					Description:    "Возврат эскроу при расторжении",
					Status:         models.TransactionStatusCompleted,
					IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeRefund),
				}}
			}
		}

		for i := range c.Milestones {
			if c.Milestones[i].Status != models.MilestoneStatusPaid {
				c.Milestones[i].Status = models.MilestoneStatusCancelled
			}
		}

		if refunded > 0 {
			open, err := s.ledger.ListOpenFunding(ctx, c.ID)
			if err != nil {
				return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
			}
			for _, entry := range open {
				unit.ConsumeFunding = append(unit.ConsumeFunding, entry.ID)
			}
			unit.FundingStatus = models.TransactionStatusRefunded
			unit.ClientDelta = -refunded
		}
	}

	if err := s.applyUnit(ctx, unit); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &actorID,
		ActorRole:   roleOf(c, actorID),
		Action:      models.ActivityContractCancelled,
		Description: fmt.Sprintf("контракт расторгнут, возвращено %.2f", refunded),
	})
	other := counterpart(c, actorID)
	s.notifier.Notify(ctx, models.Notification{
		UserID:    other,
		Role:      roleOf(c, other),
		Title:     "Контракт расторгнут",
		Message:   fmt.Sprintf("Контракт %s расторгнут. Причина: %s", c.ContractID, reason),
		Type:      models.NotificationTypeCancellation,
		RelatedID: &c.ID,
	})

	return &CancelResult{Contract: c, Refunded: refunded}, nil
}

// CreateCancellationInput — предложение расторжения с разделением.
type CreateCancellationInput struct {
	ContractID             uuid.UUID
	ActorID                uuid.UUID
	Reason                 string
	ClientSplitPercent     float64
	FreelancerSplitPercent float64
}

// CreateCancellationRequest открывает запрос на расторжение по
// соглашению. Проценты разделения фиксируются от удержанной суммы на
// момент создания; деньги двигаются только при принятии.
func (s *CancellationService) CreateCancellationRequest(ctx context.Context, in CreateCancellationInput) (*models.CancellationRequest, error) {
	if in.ClientSplitPercent < 0 || in.FreelancerSplitPercent < 0 ||
		math.Abs(in.ClientSplitPercent+in.FreelancerSplitPercent-100) > 1e-9 {
		return nil, apperror.New(apperror.ErrCodeValidation, "проценты разделения должны в сумме давать 100")
	}
	if in.Reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина расторжения обязательна")
	}

	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, in.ActorID) {
		return nil, apperror.ErrForbidden
	}
	if !c.Status.CanTransitionTo(models.ContractStatusCancellationRequested) {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт нельзя расторгать в текущем статусе")
	}
	if c.PaymentType == models.PaymentTypeHourly {
		return nil, apperror.New(apperror.ErrCodeNotImplemented, "расторжение hourly контракта выполняется через завершение")
	}

	if _, err := s.cancellations.GetPendingByContract(ctx, c.ID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже есть открытый запрос на расторжение")
	} else if !errors.Is(err, repository.ErrCancellationNotFound) {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить запросы на расторжение")
	}

	var held float64
	if c.PaymentType == models.PaymentTypeMilestones {
		// Разделению подлежит эскроу только тех вех, по которым есть
		// сданные работы; эскроу остальных профинансированных вех при
		// принятии возвращается клиенту целиком.
		for _, m := range c.EscrowedMilestones() {
			if len(m.Deliverables) > 0 {
				held = models.RoundMoney(held + m.Amount)
			}
		}
	} else {
		totals, err := s.ledger.Totals(ctx, c.ID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
		}
		held = totals.Held()
	}
	if held <= 0 {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту нет удержанных средств, используйте прямое расторжение")
	}

	clientAmount := models.RoundMoney(held * in.ClientSplitPercent / 100)
	freelancerAmount := models.RoundMoney(held - clientAmount)

	req := &models.CancellationRequest{
		ContractID:             c.ID,
		InitiatedBy:            in.ActorID,
		Reason:                 in.Reason,
		ClientSplitPercent:     in.ClientSplitPercent,
		FreelancerSplitPercent: in.FreelancerSplitPercent,
		TotalHeldAmount:        held,
		ClientAmount:           clientAmount,
		FreelancerAmount:       freelancerAmount,
		Status:                 models.CancellationStatusPending,
	}
	if err := s.cancellations.Create(ctx, req); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать запрос на расторжение")
	}

	c.Status = models.ContractStatusCancellationRequested
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.saveError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   roleOf(c, in.ActorID),
		Action:      models.ActivityCancellationRequested,
		Description: fmt.Sprintf("запрошено расторжение %s с разделением %.0f/%.0f", req.CancellationRequestID, in.ClientSplitPercent, in.FreelancerSplitPercent),
	})
	other := counterpart(c, in.ActorID)
	s.notifier.Notify(ctx, models.Notification{
		UserID:    other,
		Role:      roleOf(c, other),
		Title:     "Запрос на расторжение",
		Message:   fmt.Sprintf("По контракту %s предложено расторжение с разделением %.0f%%/%.0f%%", c.ContractID, in.ClientSplitPercent, in.FreelancerSplitPercent),
		Type:      models.NotificationTypeCancellation,
		RelatedID: &c.ID,
	})

	return req, nil
}

// loadPendingRequest возвращает открытый запрос и проверяет, что actor —
// противоположная инициатору сторона.
func (s *CancellationService) loadPendingRequest(ctx context.Context, c *models.Contract, actorID uuid.UUID) (*models.CancellationRequest, error) {
	req, err := s.cancellations.GetPendingByContract(ctx, c.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCancellationNotFound) {
			return nil, apperror.ErrCancellationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать запрос на расторжение")
	}
	if req.InitiatedBy == actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "ответить на запрос может только другая сторона")
	}
	return req, nil
}

// AcceptCancellation принимает условия расторжения: удержанная сумма
// делится по зафиксированным процентам, контракт закрывается.
func (s *CancellationService) AcceptCancellation(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) {
		return nil, apperror.ErrForbidden
	}
	if c.Status != models.ContractStatusCancellationRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту нет открытого запроса на расторжение")
	}

	req, err := s.loadPendingRequest(ctx, c, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c.Status = models.ContractStatusCancelled
	c.Balance = 0
	c.CancelledBy = &req.InitiatedBy
	c.CancelledAt = &now

	// Вехи без сданных работ не участвуют в разделении: их эскроу
	// возвращается клиенту целиком отдельными записями.
	var refundMilestones []*models.ContractMilestone
	if c.PaymentType == models.PaymentTypeMilestones {
		for _, m := range c.EscrowedMilestones() {
			if len(m.Deliverables) == 0 {
				refundMilestones = append(refundMilestones, m)
			}
		}
	}
	refundScoped := make(map[uuid.UUID]bool, len(refundMilestones))
	for _, m := range refundMilestones {
		refundScoped[m.ID] = true
	}

	for i := range c.Milestones {
		if c.Milestones[i].Status != models.MilestoneStatusPaid {
			c.Milestones[i].Status = models.MilestoneStatusCancelled
		}
	}

	unit := repository.SettlementUnit{Contract: c}
	open, err := s.ledger.ListOpenFunding(ctx, c.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
	}
	for _, entry := range open {
		if entry.MilestoneID != nil && refundScoped[*entry.MilestoneID] {
			unit.RefundFunding = append(unit.RefundFunding, entry.ID)
			continue
		}
		unit.ConsumeFunding = append(unit.ConsumeFunding, entry.ID)
	}
	unit.FundingStatus = models.TransactionStatusConsumed

	refundedOutside := 0.0
	for _, m := range refundMilestones {
		unit.Entries = append(unit.Entries, models.ContractTransaction{
			ContractID:     c.ID,
			MilestoneID:    &m.ID,
			Purpose:        models.TransactionPurposeRefund,
			Amount:         m.Amount,
			ClientID:       c.ClientID,
			FreelancerID:   c.FreelancerID,
			Description:    fmt.Sprintf("Возврат эскроу вехи %q при расторжении", m.Title),
			Status:         models.TransactionStatusCompleted,
			IdempotencyKey: models.SettlementKey(c.ID, &m.ID, models.TransactionPurposeRefund),
		})
		refundedOutside = models.RoundMoney(refundedOutside + m.Amount)
	}

	if req.ClientAmount > 0 {
		unit.Entries = append(unit.Entries, models.ContractTransaction{
			ContractID:     c.ID,
			Purpose:        models.TransactionPurposeRefund,
			Amount:         req.ClientAmount,
			ClientID:       c.ClientID,
			FreelancerID:   c.FreelancerID,
			Description:    fmt.Sprintf("Возврат клиенту по соглашению %s", req.CancellationRequestID),
			Status:         models.TransactionStatusCompleted,
			IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeRefund),
		})
	}
	if req.FreelancerAmount > 0 {
		unit.Entries = append(unit.Entries, models.ContractTransaction{
			ContractID:     c.ID,
			Purpose:        models.TransactionPurposeRelease,
			Amount:         req.FreelancerAmount,
			ClientID:       c.ClientID,
			FreelancerID:   c.FreelancerID,
			Description:    fmt.Sprintf("Выплата фрилансеру по соглашению %s", req.CancellationRequestID),
			Status:         models.TransactionStatusCompleted,
			IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeRelease),
		})
		unit.FreelancerShare = req.FreelancerAmount
	}
	unit.ClientDelta = -models.RoundMoney(req.TotalHeldAmount + refundedOutside)

	if err := s.applyUnit(ctx, unit); err != nil {
		return nil, err
	}
	if err := s.cancellations.SetStatus(ctx, req.ID, models.CancellationStatusAccepted); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть запрос на расторжение")
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &actorID,
		ActorRole:   roleOf(c, actorID),
		Action:      models.ActivityCancellationAccepted,
		Description: fmt.Sprintf("расторжение %s принято: клиенту %.2f, фрилансеру %.2f", req.CancellationRequestID, req.ClientAmount, req.FreelancerAmount),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    req.InitiatedBy,
		Role:      roleOf(c, req.InitiatedBy),
		Title:     "Расторжение принято",
		Message:   fmt.Sprintf("Условия расторжения контракта %s приняты", c.ContractID),
		Type:      models.NotificationTypeCancellation,
		RelatedID: &c.ID,
	})

	return c, nil
}

// DisputeCancellation оспаривает условия расторжения: открывается спор,
// контракт и деньги замораживаются до внешнего разрешения.
func (s *CancellationService) DisputeCancellation(ctx context.Context, contractID, actorID uuid.UUID, description string) (*models.Dispute, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) {
		return nil, apperror.ErrForbidden
	}
	if c.Status != models.ContractStatusCancellationRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту нет открытого запроса на расторжение")
	}

	req, err := s.loadPendingRequest(ctx, c, actorID)
	if err != nil {
		return nil, err
	}
	if s.disputeWindow > 0 && time.Since(req.CreatedAt) > s.disputeWindow {
		return nil, apperror.New(apperror.ErrCodeConflict, "срок оспаривания условий расторжения истёк")
	}

	d := &models.Dispute{
		ContractID:            c.ID,
		CancellationRequestID: req.ID,
		RaisedBy:              actorID,
		ReasonCode:            models.DisputeReasonCancellationTerms,
		Description:           description,
		Status:                models.DisputeStatusOpen,
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось открыть спор")
	}
	if err := s.cancellations.SetStatus(ctx, req.ID, models.CancellationStatusDisputed); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить запрос на расторжение")
	}

	c.Status = models.ContractStatusDisputed
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.saveError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &actorID,
		ActorRole:   roleOf(c, actorID),
		Action:      models.ActivityDisputeOpened,
		Description: fmt.Sprintf("оспорены условия расторжения %s", req.CancellationRequestID),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    req.InitiatedBy,
		Role:      roleOf(c, req.InitiatedBy),
		Title:     "Открыт спор",
		Message:   fmt.Sprintf("Условия расторжения контракта %s оспорены", c.ContractID),
		Type:      models.NotificationTypeDispute,
		RelatedID: &c.ID,
	})

	return d, nil
}

// RejectCancellation закрывает запрос без движения денег. Инициатор
// отзывает свой запрос, другая сторона отклоняет его; в обоих случаях
// контракт возвращается в активную работу.
func (s *CancellationService) RejectCancellation(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) {
		return nil, apperror.ErrForbidden
	}
	if c.Status != models.ContractStatusCancellationRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "по контракту нет открытого запроса на расторжение")
	}

	req, err := s.cancellations.GetPendingByContract(ctx, c.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCancellationNotFound) {
			return nil, apperror.ErrCancellationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать запрос на расторжение")
	}

	status := models.CancellationStatusRejected
	if req.InitiatedBy == actorID {
		status = models.CancellationStatusCancelled
	}
	if err := s.cancellations.SetStatus(ctx, req.ID, status); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть запрос на расторжение")
	}

	c.Status = models.ContractStatusActive
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.saveError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &actorID,
		ActorRole:   roleOf(c, actorID),
		Action:      models.ActivityCancellationRejected,
		Description: fmt.Sprintf("запрос %s закрыт без расторжения", req.CancellationRequestID),
	})
	other := counterpart(c, actorID)
	s.notifier.Notify(ctx, models.Notification{
		UserID:    other,
		Role:      roleOf(c, other),
		Title:     "Запрос на расторжение закрыт",
		Message:   fmt.Sprintf("Контракт %s продолжает действовать", c.ContractID),
		Type:      models.NotificationTypeCancellation,
		RelatedID: &c.ID,
	})

	return c, nil
}

// ListCancellations возвращает историю запросов на расторжение.
func (s *CancellationService) ListCancellations(ctx context.Context, contractID, actorID uuid.UUID, role string) ([]models.CancellationRequest, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) && role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return s.cancellations.ListByContract(ctx, contractID)
}

// GetDispute возвращает спор по контракту, если он открыт.
func (s *CancellationService) GetDispute(ctx context.Context, contractID, actorID uuid.UUID, role string) (*models.Dispute, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) && role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	d, err := s.disputes.GetByContractID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "спор по контракту не найден")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить спор")
	}
	return d, nil
}

func (s *CancellationService) loadContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return c, nil
}

func (s *CancellationService) applyUnit(ctx context.Context, unit repository.SettlementUnit) error {
	if err := s.settlements.Apply(ctx, unit); err != nil {
		return s.saveError(err)
	}
	return nil
}

func (s *CancellationService) saveError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperror.New(apperror.ErrCodeConflict, "контракт изменён параллельно, повторите запрос")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить изменения")
}
