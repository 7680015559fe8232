package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionPurpose — назначение записи в финансовом журнале.
type TransactionPurpose string

const (
	TransactionPurposeFunding TransactionPurpose = "funding"
	// Удержание выражается статусом held у funding записи; hold входит
	// в словарь назначений для внешних читателей журнала.
	TransactionPurposeHold       TransactionPurpose = "hold"
	TransactionPurposeRelease    TransactionPurpose = "release"
	TransactionPurposeCommission TransactionPurpose = "commission"
	TransactionPurposeRefund     TransactionPurpose = "refund"
)

// Статусы записей журнала. Денежные записи неизменяемы; статус меняется
// только у funding записей при их расходовании или возврате.
const (
	TransactionStatusHeld      = "held"
	TransactionStatusCompleted = "completed"
	TransactionStatusConsumed  = "consumed"
	TransactionStatusRefunded  = "refunded_back_to_client"
)

// ContractTransaction — неизменяемая запись о движении денег по контракту.
type ContractTransaction struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	ContractID     uuid.UUID          `db:"contract_id" json:"contract_id"`
	MilestoneID    *uuid.UUID         `db:"milestone_id" json:"milestone_id,omitempty"`
	Purpose        TransactionPurpose `db:"purpose" json:"purpose"`
	Amount         float64            `db:"amount" json:"amount"`
	ClientID       uuid.UUID          `db:"client_id" json:"client_id"`
	FreelancerID   uuid.UUID          `db:"freelancer_id" json:"freelancer_id"`
	Description    string             `db:"description" json:"description"`
	Status         string             `db:"status" json:"status"`
	IdempotencyKey string             `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

// SettlementKey строит идемпотентный ключ записи журнала. Повторное
// применение той же операции после частичного сбоя не создаёт дубль.
func SettlementKey(contractID uuid.UUID, milestoneID *uuid.UUID, purpose TransactionPurpose) string {
	scope := "contract"
	if milestoneID != nil {
		scope = milestoneID.String()
	}
	return fmt.Sprintf("%s:%s:%s", contractID, scope, purpose)
}

// LedgerTotals — агрегаты журнала по контракту.
type LedgerTotals struct {
	TotalFunded     float64 `db:"total_funded" json:"total_funded"`
	TotalReleased   float64 `db:"total_released" json:"total_released"`
	TotalCommission float64 `db:"total_commission" json:"total_commission"`
	TotalRefunded   float64 `db:"total_refunded" json:"total_refunded"`
}

// Held возвращает сумму, остающуюся в эскроу по данным журнала.
func (t LedgerTotals) Held() float64 {
	return RoundMoney(t.TotalFunded - t.TotalReleased - t.TotalRefunded)
}
