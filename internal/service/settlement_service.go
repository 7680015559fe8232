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

// ContractStore описывает взаимодействие сервисов с хранилищем контрактов.
type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error)
	ListWithStaleSubmissions(ctx context.Context, before time.Time) ([]models.Contract, error)
	Save(ctx context.Context, c *models.Contract) error
}

// LedgerStore описывает чтение финансового журнала.
type LedgerStore interface {
	FindOpenFunding(ctx context.Context, contractID uuid.UUID, milestoneID *uuid.UUID) (*models.ContractTransaction, error)
	ListOpenFunding(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error)
	CountOpenFunding(ctx context.Context, contractID uuid.UUID) (int, error)
	Totals(ctx context.Context, contractID uuid.UUID) (*models.LedgerTotals, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractTransaction, error)
}

// SettlementStore применяет атомарный шаг расчёта.
type SettlementStore interface {
	Apply(ctx context.Context, unit repository.SettlementUnit) error
}

// ActivityLogger пишет журнал действий; сбой записи не прерывает операцию.
type ActivityLogger interface {
	Log(ctx context.Context, a models.ContractActivity)
}

// Notifier доставляет уведомление стороне контракта fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// SettlementService — ядро жизненного цикла контракта: финансирование,
// сдачи работ, подтверждения с выплатой, правки, hourly активация и
// завершение. Все денежные шаги проходят через SettlementStore одной
// транзакцией.
type SettlementService struct {
	contracts      ContractStore
	ledger         LedgerStore
	settlements    SettlementStore
	activity       ActivityLogger
	notifier       Notifier
	commissionRate float64
}

func NewSettlementService(
	contracts ContractStore,
	ledger LedgerStore,
	settlements SettlementStore,
	activity ActivityLogger,
	notifier Notifier,
	commissionRate float64,
) *SettlementService {
	return &SettlementService{
		contracts:      contracts,
		ledger:         ledger,
		settlements:    settlements,
		activity:       activity,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

// CreateContractInput описывает условия принятого оффера.
type CreateContractInput struct {
	ClientID         uuid.UUID
	FreelancerID     uuid.UUID
	OfferID          uuid.UUID
	JobID            *uuid.UUID
	ProposalID       *uuid.UUID
	Title            string
	PaymentType      models.PaymentType
	Budget           float64
	HourlyRate       float64
	EstimatedHours   float64
	RevisionsAllowed int
	Deadline         *time.Time
	Milestones       []MilestoneInput
}

// MilestoneInput описывает веху при создании контракта.
type MilestoneInput struct {
	Title            string
	Amount           float64
	ExpectedDelivery *time.Time
	RevisionsAllowed int
}

// CreateContract создаёт контракт из принятого оффера. Условия оффера
// фиксируются как неизменяемый снимок; контракт ждёт финансирования.
func (s *SettlementService) CreateContract(ctx context.Context, in CreateContractInput) (*models.Contract, error) {
	if !in.PaymentType.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная схема оплаты")
	}
	if in.Title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название контракта обязательно")
	}

	c := &models.Contract{
		ClientID:         in.ClientID,
		FreelancerID:     in.FreelancerID,
		OfferID:          in.OfferID,
		JobID:            in.JobID,
		ProposalID:       in.ProposalID,
		Title:            in.Title,
		PaymentType:      in.PaymentType,
		Status:           models.ContractStatusPendingFunding,
		Deadline:         in.Deadline,
		RevisionsAllowed: in.RevisionsAllowed,
	}

	switch in.PaymentType {
	case models.PaymentTypeFixed:
		if in.Budget <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "бюджет должен быть положительным")
		}
		c.Budget = in.Budget
	case models.PaymentTypeMilestones:
		if len(in.Milestones) == 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "milestone контракт требует хотя бы одну веху")
		}
		total := 0.0
		for _, m := range in.Milestones {
			if m.Amount <= 0 {
				return nil, apperror.New(apperror.ErrCodeValidation, "сумма вехи должна быть положительной")
			}
			total += m.Amount
			c.Milestones = append(c.Milestones, models.ContractMilestone{
				ID:               uuid.New(),
				Title:            m.Title,
				Amount:           m.Amount,
				ExpectedDelivery: m.ExpectedDelivery,
				Status:           models.MilestoneStatusPendingFunding,
				RevisionsAllowed: m.RevisionsAllowed,
			})
		}
		c.Budget = models.RoundMoney(total)
	case models.PaymentTypeHourly:
		if in.HourlyRate <= 0 || in.EstimatedHours <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "hourly контракт требует ставку и оценку часов в неделю")
		}
		c.HourlyRate = in.HourlyRate
		c.EstimatedHoursPerWeek = in.EstimatedHours
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ClientID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityContractCreated,
		Description: fmt.Sprintf("контракт %s создан из оффера", c.ContractID),
	})

	return c, nil
}

// loadContract загружает агрегат и переводит ошибки хранилища в apperror.
func (s *SettlementService) loadContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return c, nil
}

// GetContract возвращает контракт стороне сделки или администратору.
func (s *SettlementService) GetContract(ctx context.Context, id, actorID uuid.UUID, role string) (*models.Contract, error) {
	c, err := s.loadContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) && role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return c, nil
}

// ListUserContracts возвращает контракты пользователя.
func (s *SettlementService) ListUserContracts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.contracts.ListByUser(ctx, userID, limit, offset)
}

// ListLedger возвращает финансовый журнал контракта его стороне.
func (s *SettlementService) ListLedger(ctx context.Context, contractID, actorID uuid.UUID, role string) ([]models.ContractTransaction, error) {
	if _, err := s.GetContract(ctx, contractID, actorID, role); err != nil {
		return nil, err
	}
	return s.ledger.ListByContract(ctx, contractID)
}

// ConfirmFundingInput описывает подтверждение платежа от внешнего шлюза.
type ConfirmFundingInput struct {
	ContractID  uuid.UUID
	MilestoneID *uuid.UUID
	Amount      float64
	// Reference — идентификатор платежа в шлюзе; служит идемпотентным
	// ключом funding записи.
	Reference string
	// ActorID/ActorRole — аутентифицированный вызывающий: клиент
	// контракта или служебная учётная запись шлюза с ролью admin.
	ActorID   uuid.UUID
	ActorRole string
}

// ConfirmFunding фиксирует поступление средств в эскроу. Вызывается
// клиентом или платёжным шлюзом; сам движок оплату не инициирует.
func (s *SettlementService) ConfirmFunding(ctx context.Context, in ConfirmFundingInput) (*models.Contract, error) {
	if in.Amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}

	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != c.ClientID && in.ActorRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if c.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт уже завершён")
	}

	milestoneTitle := ""
	switch c.PaymentType {
	case models.PaymentTypeFixed:
		if c.Status != models.ContractStatusPendingFunding {
			return nil, apperror.New(apperror.ErrCodeConflict, "контракт уже профинансирован")
		}
		c.FundedAmount = models.RoundMoney(c.FundedAmount + in.Amount)
		c.Balance = models.RoundMoney(c.FundedAmount - c.TotalPaid)
		c.Status = models.ContractStatusActive
	case models.PaymentTypeHourly:
		if c.Status != models.ContractStatusPendingFunding && c.Status != models.ContractStatusHeld {
			return nil, apperror.New(apperror.ErrCodeConflict, "hourly контракт нельзя финансировать в текущем статусе")
		}
		c.FundedAmount = models.RoundMoney(c.FundedAmount + in.Amount)
		c.Balance = models.RoundMoney(c.FundedAmount - c.TotalPaid)
		c.Status = models.ContractStatusHeld
	case models.PaymentTypeMilestones:
		if in.MilestoneID == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "milestone контракт финансируется повехово")
		}
		m := c.MilestoneByID(*in.MilestoneID)
		if m == nil {
			return nil, apperror.ErrMilestoneNotFound
		}
		if m.Status != models.MilestoneStatusPendingFunding {
			return nil, apperror.New(apperror.ErrCodeConflict, "веха уже профинансирована")
		}
		m.Status = models.MilestoneStatusFunded
		m.IsFunded = true
		milestoneTitle = m.Title
		c.FundedAmount = models.RoundMoney(c.FundedAmount + in.Amount)
		c.Balance = models.RoundMoney(c.FundedAmount - c.TotalPaid)
		if c.Status == models.ContractStatusPendingFunding {
			c.Status = models.ContractStatusActive
		}
	default:
		return nil, apperror.New(apperror.ErrCodeInternal, fmt.Sprintf("неизвестная схема оплаты %q", c.PaymentType))
	}

	key := models.SettlementKey(c.ID, in.MilestoneID, models.TransactionPurposeFunding)
	if in.Reference != "" {
		key = "funding:" + in.Reference
	}

	entry := models.ContractTransaction{
		ContractID:     c.ID,
		MilestoneID:    in.MilestoneID,
		Purpose:        models.TransactionPurposeFunding,
		Amount:         in.Amount,
		ClientID:       c.ClientID,
		FreelancerID:   c.FreelancerID,
		Description:    "Зачисление средств в эскроу",
		Status:         models.TransactionStatusHeld,
		IdempotencyKey: key,
	}

	unit := repository.SettlementUnit{
		Contract:    c,
		Entries:     []models.ContractTransaction{entry},
		ClientDelta: in.Amount,
	}
	if err := s.settlements.Apply(ctx, unit); err != nil {
		return nil, s.settlementError(err)
	}

	action := models.ActivityContractFunded
	description := fmt.Sprintf("эскроу пополнено на %.2f", in.Amount)
	if in.MilestoneID != nil {
		action = models.ActivityMilestoneFunded
		description = fmt.Sprintf("веха %q профинансирована на %.2f", milestoneTitle, in.Amount)
	}
	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &c.ClientID,
		ActorRole:   models.RoleClient,
		Action:      action,
		Description: description,
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Контракт профинансирован",
		Message:   fmt.Sprintf("По контракту %s зачислено %.2f, можно приступать к работе", c.ContractID, in.Amount),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// SubmitDeliverableInput — сдача работы по fixed контракту.
type SubmitDeliverableInput struct {
	ContractID uuid.UUID
	ActorID    uuid.UUID
	Files      []models.DeliverableFile
	Message    string
}

// SubmitDeliverable фиксирует очередную версию сдачи работы.
func (s *SettlementService) SubmitDeliverable(ctx context.Context, in SubmitDeliverableInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.FreelancerID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeFixed {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "сдача уровня контракта доступна только fixed контрактам")
	}
	if c.Status != models.ContractStatusActive && c.Status != models.ContractStatusChangesRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не принимает сдачи работ в текущем статусе")
	}

	now := time.Now()
	c.Deliverables = append(c.Deliverables, models.Deliverable{
		ID:          uuid.New(),
		SubmittedBy: in.ActorID,
		Files:       in.Files,
		Message:     in.Message,
		Status:      models.DeliverableStatusSubmitted,
		Version:     nextDeliverableVersion(c.Deliverables),
		SubmittedAt: now,
	})
	c.LastSubmissionAt = &now
	c.Status = models.ContractStatusActive

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleFreelancer,
		Action:      models.ActivityDeliverableSubmitted,
		Description: fmt.Sprintf("сдана версия %d", c.Deliverables[len(c.Deliverables)-1].Version),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.ClientID,
		Role:      models.RoleClient,
		Title:     "Работа сдана на проверку",
		Message:   fmt.Sprintf("Фрилансер сдал работу по контракту %s", c.ContractID),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// ApproveDeliverableInput — подтверждение сдачи с выплатой.
type ApproveDeliverableInput struct {
	ContractID    uuid.UUID
	DeliverableID uuid.UUID
	ActorID       uuid.UUID
	Message       string
	// Auto помечает срабатывание фонового автоподтверждения.
	Auto bool
}

// ApproveDeliverable подтверждает сдачу по fixed контракту и проводит
// выплату: release на полную сумму funding записи, commission на долю
// платформы, дебет клиента, кредит фрилансера. Отсутствие funding записи
// — нарушение целостности данных, а не ошибка пользователя.
func (s *SettlementService) ApproveDeliverable(ctx context.Context, in ApproveDeliverableInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeFixed {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "для milestone контракта используйте подтверждение вехи")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	d := c.DeliverableByID(in.DeliverableID)
	if d == nil {
		return nil, apperror.ErrDeliverableNotFound
	}
	if d.Status == models.DeliverableStatusApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "сдача уже подтверждена")
	}
	if d.Status != models.DeliverableStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeConflict, "сдача ожидает исправлений и не может быть подтверждена")
	}

	funding, err := s.ledger.FindOpenFunding(ctx, c.ID, nil)
	if err != nil {
		if errors.Is(err, repository.ErrFundingNotFound) {
			return nil, apperror.New(apperror.ErrCodeInternal, "funding запись для выплаты отсутствует")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
	}

	amount := funding.Amount
	commission := models.RoundMoney(amount * s.commissionRate)
	share := models.RoundMoney(amount - commission)

	now := time.Now()
	d.Status = models.DeliverableStatusApproved
	d.ApprovedAt = &now
	c.TotalPaid = models.RoundMoney(c.TotalPaid + amount)
	c.Balance = models.RoundMoney(c.FundedAmount - c.TotalPaid)

	// Fixed контракт завершается, когда нерастраченных funding записей
	// не остаётся; текущая расходуется этой же транзакцией.
	open, err := s.ledger.CountOpenFunding(ctx, c.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
	}
	if open <= 1 {
		c.Status = models.ContractStatusCompleted
	}

	unit := repository.SettlementUnit{
		Contract: c,
		Entries: []models.ContractTransaction{
			{
				ContractID:     c.ID,
				Purpose:        models.TransactionPurposeRelease,
				Amount:         amount,
				ClientID:       c.ClientID,
				FreelancerID:   c.FreelancerID,
				Description:    "Выплата за подтверждённую работу",
				Status:         models.TransactionStatusCompleted,
				IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeRelease),
			},
			{
				ContractID:     c.ID,
				Purpose:        models.TransactionPurposeCommission,
				Amount:         commission,
				ClientID:       c.ClientID,
				FreelancerID:   c.FreelancerID,
				Description:    "Комиссия платформы",
				Status:         models.TransactionStatusCompleted,
				IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeCommission),
			},
		},
		ConsumeFunding:       []uuid.UUID{funding.ID},
		FundingStatus:        models.TransactionStatusConsumed,
		ClientDelta:          -amount,
		FreelancerShare:      share,
		FreelancerCommission: commission,
	}
	if err := s.settlements.Apply(ctx, unit); err != nil {
		return nil, s.settlementError(err)
	}

	description := fmt.Sprintf("сдача подтверждена, выплачено %.2f", amount)
	if in.Auto {
		description = fmt.Sprintf("сдача подтверждена автоматически по истечении срока, выплачено %.2f", amount)
	}
	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &c.ClientID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityDeliverableApproved,
		Description: description,
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Работа принята",
		Message:   fmt.Sprintf("По контракту %s выплачено %.2f", c.ContractID, share),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// RequestChangesInput — запрос правок по сдаче.
type RequestChangesInput struct {
	ContractID    uuid.UUID
	DeliverableID uuid.UUID
	ActorID       uuid.UUID
	Message       string
}

// RequestDeliverableChanges расходует одну правку из лимита fixed
// контракта и возвращает сдачу на доработку.
func (s *SettlementService) RequestDeliverableChanges(ctx context.Context, in RequestChangesInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeFixed {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "для milestone контракта используйте запрос правок по вехе")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	d := c.DeliverableByID(in.DeliverableID)
	if d == nil {
		return nil, apperror.ErrDeliverableNotFound
	}
	if d.Status == models.DeliverableStatusApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "подтверждённая сдача не принимает правки")
	}
	if d.Status != models.DeliverableStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeConflict, "правки уже запрошены")
	}

	remaining, err := remainingRevisions(c, nil, d)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, apperror.New(apperror.ErrCodeConflict, "лимит правок по контракту исчерпан")
	}

	d.Status = models.DeliverableStatusChangesRequested
	d.RevisionsRequested++
	c.RevisionsUsed++
	c.Status = models.ContractStatusChangesRequested

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityChangesRequested,
		Description: fmt.Sprintf("запрошены правки, осталось %d", remaining-1),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Запрошены правки",
		Message:   fmt.Sprintf("Клиент запросил правки по контракту %s", c.ContractID),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// SubmitMilestoneDeliverableInput — сдача работы по вехе.
type SubmitMilestoneDeliverableInput struct {
	ContractID  uuid.UUID
	MilestoneID uuid.UUID
	ActorID     uuid.UUID
	Files       []models.DeliverableFile
	Message     string
}

// SubmitMilestoneDeliverable фиксирует сдачу по профинансированной вехе.
func (s *SettlementService) SubmitMilestoneDeliverable(ctx context.Context, in SubmitMilestoneDeliverableInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.FreelancerID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeMilestones {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "контракт не содержит вех")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	m := c.MilestoneByID(in.MilestoneID)
	if m == nil {
		return nil, apperror.ErrMilestoneNotFound
	}
	if m.Status != models.MilestoneStatusFunded && m.Status != models.MilestoneStatusChangesRequested {
		return nil, apperror.New(apperror.ErrCodeConflict, "веха не принимает сдачи в текущем статусе")
	}

	now := time.Now()
	m.Deliverables = append(m.Deliverables, models.Deliverable{
		ID:          uuid.New(),
		SubmittedBy: in.ActorID,
		Files:       in.Files,
		Message:     in.Message,
		Status:      models.DeliverableStatusSubmitted,
		Version:     nextDeliverableVersion(m.Deliverables),
		SubmittedAt: now,
	})
	m.Status = models.MilestoneStatusSubmitted
	c.LastSubmissionAt = &now

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleFreelancer,
		Action:      models.ActivityDeliverableSubmitted,
		Description: fmt.Sprintf("сдана работа по вехе %q", m.Title),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.ClientID,
		Role:      models.RoleClient,
		Title:     "Работа по вехе сдана",
		Message:   fmt.Sprintf("Сдана работа по вехе %q контракта %s", m.Title, c.ContractID),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// ApproveMilestoneDeliverableInput — подтверждение сдачи вехи.
type ApproveMilestoneDeliverableInput struct {
	ContractID    uuid.UUID
	MilestoneID   uuid.UUID
	DeliverableID uuid.UUID
	ActorID       uuid.UUID
	Message       string
	Auto          bool
}

// ApproveMilestoneDeliverable подтверждает сдачу вехи и выплачивает её
// funding запись. Веха достигает статуса paid не более одного раза.
func (s *SettlementService) ApproveMilestoneDeliverable(ctx context.Context, in ApproveMilestoneDeliverableInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeMilestones {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "контракт не содержит вех")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	m := c.MilestoneByID(in.MilestoneID)
	if m == nil {
		return nil, apperror.ErrMilestoneNotFound
	}
	if m.Status == models.MilestoneStatusPaid {
		return nil, apperror.New(apperror.ErrCodeConflict, "веха уже оплачена")
	}

	d := m.DeliverableByID(in.DeliverableID)
	if d == nil {
		return nil, apperror.ErrDeliverableNotFound
	}
	if d.Status == models.DeliverableStatusApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "сдача уже подтверждена")
	}
	if d.Status != models.DeliverableStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeConflict, "сдача ожидает исправлений и не может быть подтверждена")
	}

	funding, err := s.ledger.FindOpenFunding(ctx, c.ID, &m.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFundingNotFound) {
			return nil, apperror.New(apperror.ErrCodeInternal, "funding запись вехи отсутствует")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
	}

	amount := funding.Amount
	commission := models.RoundMoney(amount * s.commissionRate)
	share := models.RoundMoney(amount - commission)

	now := time.Now()
	d.Status = models.DeliverableStatusApproved
	d.ApprovedAt = &now
	m.Status = models.MilestoneStatusPaid
	c.TotalPaid = models.RoundMoney(c.TotalPaid + amount)
	c.Balance = models.RoundMoney(c.FundedAmount - c.TotalPaid)

	// Milestone контракт завершается, когда оплачена каждая веха.
	allPaid := true
	for i := range c.Milestones {
		if c.Milestones[i].Status != models.MilestoneStatusPaid {
			allPaid = false
			break
		}
	}
	if allPaid {
		c.Status = models.ContractStatusCompleted
	}

	unit := repository.SettlementUnit{
		Contract: c,
		Entries: []models.ContractTransaction{
			{
				ContractID:     c.ID,
				MilestoneID:    &m.ID,
				Purpose:        models.TransactionPurposeRelease,
				Amount:         amount,
				ClientID:       c.ClientID,
				FreelancerID:   c.FreelancerID,
				Description:    fmt.Sprintf("Выплата за веху %q", m.Title),
				Status:         models.TransactionStatusCompleted,
				IdempotencyKey: models.SettlementKey(c.ID, &m.ID, models.TransactionPurposeRelease),
			},
			{
				ContractID:     c.ID,
				MilestoneID:    &m.ID,
				Purpose:        models.TransactionPurposeCommission,
				Amount:         commission,
				ClientID:       c.ClientID,
				FreelancerID:   c.FreelancerID,
				Description:    fmt.Sprintf("Комиссия платформы по вехе %q", m.Title),
				Status:         models.TransactionStatusCompleted,
				IdempotencyKey: models.SettlementKey(c.ID, &m.ID, models.TransactionPurposeCommission),
			},
		},
		ConsumeFunding:       []uuid.UUID{funding.ID},
		FundingStatus:        models.TransactionStatusConsumed,
		ClientDelta:          -amount,
		FreelancerShare:      share,
		FreelancerCommission: commission,
	}
	if err := s.settlements.Apply(ctx, unit); err != nil {
		return nil, s.settlementError(err)
	}

	description := fmt.Sprintf("веха %q оплачена, выплачено %.2f", m.Title, amount)
	if in.Auto {
		description = fmt.Sprintf("веха %q оплачена автоматически по истечении срока", m.Title)
	}
	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &c.ClientID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityMilestonePaid,
		Description: description,
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Веха оплачена",
		Message:   fmt.Sprintf("По вехе %q контракта %s выплачено %.2f", m.Title, c.ContractID, share),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// RequestMilestoneChangesInput — запрос правок по сдаче вехи.
type RequestMilestoneChangesInput struct {
	ContractID    uuid.UUID
	MilestoneID   uuid.UUID
	DeliverableID uuid.UUID
	ActorID       uuid.UUID
	Message       string
}

// RequestMilestoneDeliverableChanges расходует правку из лимита вехи.
func (s *SettlementService) RequestMilestoneDeliverableChanges(ctx context.Context, in RequestMilestoneChangesInput) (*models.Contract, error) {
	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeMilestones {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "контракт не содержит вех")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	m := c.MilestoneByID(in.MilestoneID)
	if m == nil {
		return nil, apperror.ErrMilestoneNotFound
	}
	if m.Status == models.MilestoneStatusPaid {
		return nil, apperror.New(apperror.ErrCodeConflict, "веха уже оплачена")
	}

	d := m.DeliverableByID(in.DeliverableID)
	if d == nil {
		return nil, apperror.ErrDeliverableNotFound
	}
	if d.Status == models.DeliverableStatusApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "подтверждённая сдача не принимает правки")
	}
	if d.Status != models.DeliverableStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeConflict, "правки уже запрошены")
	}

	remaining, err := remainingRevisions(c, m, d)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, apperror.New(apperror.ErrCodeConflict, "лимит правок по вехе исчерпан")
	}

	d.Status = models.DeliverableStatusChangesRequested
	d.RevisionsRequested++
	m.Status = models.MilestoneStatusChangesRequested

	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleClient,
		Action:      models.ActivityChangesRequested,
		Description: fmt.Sprintf("запрошены правки по вехе %q, осталось %d", m.Title, remaining-1),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.FreelancerID,
		Role:      models.RoleFreelancer,
		Title:     "Запрошены правки по вехе",
		Message:   fmt.Sprintf("Клиент запросил правки по вехе %q контракта %s", m.Title, c.ContractID),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// ActivateHourlyContract переводит hourly контракт в работу. Требуется
// эскроу хотя бы на одну неделю по ставке.
func (s *SettlementService) ActivateHourlyContract(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isParty(c, actorID) {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeHourly {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "активация доступна только hourly контрактам")
	}
	if c.Status != models.ContractStatusHeld {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "контракт нельзя активировать в текущем статусе")
	}

	weekly := models.RoundMoney(c.HourlyRate * c.EstimatedHoursPerWeek)
	if c.FundedAmount < weekly {
		return nil, apperror.New(apperror.ErrCodeBadRequest,
			fmt.Sprintf("эскроу %.2f меньше недельной ставки %.2f", c.FundedAmount, weekly))
	}

	c.Status = models.ContractStatusActive
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID: c.ID,
		ActorID:    &actorID,
		ActorRole:  roleOf(c, actorID),
		Action:     models.ActivityContractActivated,
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    counterpart(c, actorID),
		Role:      roleOf(c, counterpart(c, actorID)),
		Title:     "Контракт активирован",
		Message:   fmt.Sprintf("Hourly контракт %s переведён в работу", c.ContractID),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// EndHourlyContract завершает hourly контракт по инициативе фрилансера:
// остаток эскроу по данным журнала возвращается клиенту одной refund
// записью.
func (s *SettlementService) EndHourlyContract(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.FreelancerID != actorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeHourly {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "завершение доступно только hourly контрактам")
	}
	if c.Status != models.ContractStatusActive && c.Status != models.ContractStatusHeld {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт нельзя завершить в текущем статусе")
	}

	totals, err := s.ledger.Totals(ctx, c.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
	}
	refundable := totals.Held()

	c.Status = models.ContractStatusCompleted
	c.Balance = 0

	unit := repository.SettlementUnit{Contract: c}
	if refundable > 0 {
		open, err := s.ledger.ListOpenFunding(ctx, c.ID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать журнал")
		}
		for _, entry := range open {
			unit.ConsumeFunding = append(unit.ConsumeFunding, entry.ID)
		}
		unit.FundingStatus = models.TransactionStatusRefunded
		unit.ClientDelta = -refundable
		unit.Entries = []models.ContractTransaction{{
			ContractID:     c.ID,
			Purpose:        models.TransactionPurposeRefund,
			Amount:         refundable,
			ClientID:       c.ClientID,
			FreelancerID:   c.FreelancerID,
			Description:    "Возврат неизрасходованного эскроу при завершении",
			Status:         models.TransactionStatusCompleted,
			IdempotencyKey: models.SettlementKey(c.ID, nil, models.TransactionPurposeRefund),
		}}
	}
	if err := s.settlements.Apply(ctx, unit); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &actorID,
		ActorRole:   models.RoleFreelancer,
		Action:      models.ActivityContractEnded,
		Description: fmt.Sprintf("контракт завершён, возвращено %.2f", refundable),
	})
	s.notifier.Notify(ctx, models.Notification{
		UserID:    c.ClientID,
		Role:      models.RoleClient,
		Title:     "Контракт завершён",
		Message:   fmt.Sprintf("Hourly контракт %s завершён, возврат %.2f", c.ContractID, refundable),
		Type:      models.NotificationTypeContract,
		RelatedID: &c.ID,
	})

	return c, nil
}

// LogTimesheetInput — запись часов по hourly контракту.
type LogTimesheetInput struct {
	ContractID uuid.UUID
	ActorID    uuid.UUID
	WeekStart  time.Time
	Hours      float64
	Memo       string
}

// LogTimesheet добавляет запись учёта часов.
func (s *SettlementService) LogTimesheet(ctx context.Context, in LogTimesheetInput) (*models.Contract, error) {
	if in.Hours <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "часы должны быть положительными")
	}

	c, err := s.loadContract(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if c.FreelancerID != in.ActorID {
		return nil, apperror.ErrForbidden
	}
	if c.PaymentType != models.PaymentTypeHourly {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "учёт часов доступен только hourly контрактам")
	}
	if c.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не в активном статусе")
	}

	c.Timesheets = append(c.Timesheets, models.Timesheet{
		ID:        uuid.New(),
		WeekStart: in.WeekStart,
		Hours:     in.Hours,
		Memo:      in.Memo,
		CreatedAt: time.Now(),
	})
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, s.settlementError(err)
	}

	s.activity.Log(ctx, models.ContractActivity{
		ContractID:  c.ID,
		ActorID:     &in.ActorID,
		ActorRole:   models.RoleFreelancer,
		Action:      models.ActivityTimesheetLogged,
		Description: fmt.Sprintf("учтено %.1f часов", in.Hours),
	})

	return c, nil
}

// CollectDeliverableFiles собирает список файлов всех сдач контракта для
// внешнего архиватора. Сам архив движок не формирует.
func (s *SettlementService) CollectDeliverableFiles(ctx context.Context, contractID, actorID uuid.UUID, role string) ([]models.DeliverableFile, error) {
	c, err := s.GetContract(ctx, contractID, actorID, role)
	if err != nil {
		return nil, err
	}

	var files []models.DeliverableFile
	for i := range c.Deliverables {
		files = append(files, c.Deliverables[i].Files...)
	}
	for i := range c.Milestones {
		for j := range c.Milestones[i].Deliverables {
			files = append(files, c.Milestones[i].Deliverables[j].Files...)
		}
	}
	return files, nil
}

// settlementError переводит ошибки хранилища в пользовательские.
func (s *SettlementService) settlementError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperror.New(apperror.ErrCodeConflict, "контракт изменён параллельно, повторите запрос")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить изменения")
}

func isParty(c *models.Contract, userID uuid.UUID) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

func counterpart(c *models.Contract, userID uuid.UUID) uuid.UUID {
	if c.ClientID == userID {
		return c.FreelancerID
	}
	return c.ClientID
}

func roleOf(c *models.Contract, userID uuid.UUID) string {
	if c.ClientID == userID {
		return models.RoleClient
	}
	return models.RoleFreelancer
}
