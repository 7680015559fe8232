package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
)

// Причины споров.
const (
	DisputeReasonCancellationTerms = "cancellation_terms"
)

// Dispute фиксирует несогласие с условиями расторжения. Пока спор не
// разрешён извне, движение денег по контракту заморожено.
type Dispute struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	ContractID            uuid.UUID  `db:"contract_id" json:"contract_id"`
	CancellationRequestID uuid.UUID  `db:"cancellation_request_id" json:"cancellation_request_id"`
	RaisedBy              uuid.UUID  `db:"raised_by" json:"raised_by"`
	ReasonCode            string     `db:"reason_code" json:"reason_code"`
	Description           string     `db:"description" json:"description,omitempty"`
	Status                string     `db:"status" json:"status"`
	Resolution            *string    `db:"resolution" json:"resolution,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt            *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
