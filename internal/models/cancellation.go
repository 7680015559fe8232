package models

import (
	"time"

	"github.com/google/uuid"
)

// CancellationStatus — состояние запроса на расторжение по соглашению.
type CancellationStatus string

const (
	CancellationStatusPending   CancellationStatus = "pending"
	CancellationStatusAccepted  CancellationStatus = "accepted"
	CancellationStatusDisputed  CancellationStatus = "disputed"
	CancellationStatusRejected  CancellationStatus = "rejected"
	CancellationStatusCancelled CancellationStatus = "cancelled"
)

// CancellationRequest — предложение о расторжении контракта с процентным
// разделением удержанной суммы. Создаётся одной стороной, разрешается
// другой.
type CancellationRequest struct {
	ID                     uuid.UUID          `db:"id" json:"id"`
	CancellationRequestID  string             `db:"cancellation_request_id" json:"cancellation_request_id"`
	ContractID             uuid.UUID          `db:"contract_id" json:"contract_id"`
	InitiatedBy            uuid.UUID          `db:"initiated_by" json:"initiated_by"`
	Reason                 string             `db:"reason" json:"reason"`
	ClientSplitPercent     float64            `db:"client_split_percent" json:"client_split_percentage"`
	FreelancerSplitPercent float64            `db:"freelancer_split_percent" json:"freelancer_split_percentage"`
	TotalHeldAmount        float64            `db:"total_held_amount" json:"total_held_amount"`
	ClientAmount           float64            `db:"client_amount" json:"client_amount"`
	FreelancerAmount       float64            `db:"freelancer_amount" json:"freelancer_amount"`
	Status                 CancellationStatus `db:"status" json:"status"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
	ResolvedAt             *time.Time         `db:"resolved_at" json:"resolved_at,omitempty"`
}
