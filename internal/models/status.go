package models

// PaymentType определяет схему оплаты контракта.
type PaymentType string

const (
	PaymentTypeFixed      PaymentType = "fixed"
	PaymentTypeMilestones PaymentType = "fixed_with_milestones"
	PaymentTypeHourly     PaymentType = "hourly"
)

func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeFixed, PaymentTypeMilestones, PaymentTypeHourly:
		return true
	}
	return false
}

// ContractStatus описывает жизненный цикл контракта.
type ContractStatus string

const (
	ContractStatusPendingFunding        ContractStatus = "pending_funding"
	ContractStatusHeld                  ContractStatus = "held"
	ContractStatusActive                ContractStatus = "active"
	ContractStatusChangesRequested      ContractStatus = "changes_requested"
	ContractStatusCompleted             ContractStatus = "completed"
	ContractStatusCancelled             ContractStatus = "cancelled"
	ContractStatusRefunded              ContractStatus = "refunded"
	ContractStatusDisputed              ContractStatus = "disputed"
	ContractStatusCancellationRequested ContractStatus = "cancellation_requested"
)

// IsTerminal сообщает, является ли статус финальным: из него нет переходов.
func (s ContractStatus) IsTerminal() bool {
	switch s {
	case ContractStatusCompleted, ContractStatusCancelled, ContractStatusRefunded, ContractStatusDisputed:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода статуса контракта.
func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	transitions := map[ContractStatus][]ContractStatus{
		ContractStatusPendingFunding: {ContractStatusHeld, ContractStatusActive, ContractStatusCancelled},
		ContractStatusHeld:           {ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled, ContractStatusCancellationRequested},
		ContractStatusActive: {
			ContractStatusChangesRequested, ContractStatusCompleted, ContractStatusCancelled,
			ContractStatusRefunded, ContractStatusDisputed, ContractStatusCancellationRequested,
		},
		ContractStatusChangesRequested: {
			ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled,
			ContractStatusDisputed, ContractStatusCancellationRequested,
		},
		ContractStatusCancellationRequested: {ContractStatusActive, ContractStatusCancelled, ContractStatusDisputed},
	}

	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MilestoneStatus описывает жизненный цикл вехи.
type MilestoneStatus string

const (
	MilestoneStatusPendingFunding   MilestoneStatus = "pending_funding"
	MilestoneStatusFunded           MilestoneStatus = "funded"
	MilestoneStatusSubmitted        MilestoneStatus = "submitted"
	MilestoneStatusChangesRequested MilestoneStatus = "changes_requested"
	// Approved веха сразу становится paid: одобрение и выплата — одна
	// атомарная операция. Статус входит в словарь для внешних читателей.
	MilestoneStatusApproved         MilestoneStatus = "approved"
	MilestoneStatusPaid             MilestoneStatus = "paid"
	MilestoneStatusCancelled        MilestoneStatus = "cancelled"
)

// DeliverableStatus описывает состояние сданной работы.
type DeliverableStatus string

const (
	DeliverableStatusSubmitted        DeliverableStatus = "submitted"
	DeliverableStatusApproved         DeliverableStatus = "approved"
	DeliverableStatusChangesRequested DeliverableStatus = "changes_requested"
)

// ExtensionStatus описывает состояние запроса на перенос срока.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusApproved ExtensionStatus = "approved"
	ExtensionStatusRejected ExtensionStatus = "rejected"
)
