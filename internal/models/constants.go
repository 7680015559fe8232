package models

// Роли пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// ValidPaymentTypes список валидных схем оплаты
var ValidPaymentTypes = map[PaymentType]struct{}{
	PaymentTypeFixed:      {},
	PaymentTypeMilestones: {},
	PaymentTypeHourly:     {},
}

// ValidContractStatuses список валидных статусов контракта
var ValidContractStatuses = map[ContractStatus]struct{}{
	ContractStatusPendingFunding:        {},
	ContractStatusHeld:                  {},
	ContractStatusActive:                {},
	ContractStatusChangesRequested:      {},
	ContractStatusCompleted:             {},
	ContractStatusCancelled:             {},
	ContractStatusRefunded:              {},
	ContractStatusDisputed:              {},
	ContractStatusCancellationRequested: {},
}
