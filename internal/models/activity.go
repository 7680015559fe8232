package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий журнала действий по контракту.
const (
	ActivityContractCreated       = "contract_created"
	ActivityContractFunded        = "contract_funded"
	ActivityMilestoneFunded       = "milestone_funded"
	ActivityDeliverableSubmitted  = "deliverable_submitted"
	ActivityDeliverableApproved   = "deliverable_approved"
	ActivityChangesRequested      = "changes_requested"
	ActivityMilestonePaid         = "milestone_paid"
	ActivityContractCompleted     = "contract_completed"
	ActivityContractCancelled     = "contract_cancelled"
	ActivityCancellationRequested = "cancellation_requested"
	ActivityCancellationAccepted  = "cancellation_accepted"
	ActivityCancellationRejected  = "cancellation_rejected"
	ActivityDisputeOpened         = "dispute_opened"
	ActivityExtensionRequested    = "extension_requested"
	ActivityExtensionResponded    = "extension_responded"
	ActivityContractActivated     = "contract_activated"
	ActivityContractEnded         = "contract_ended"
	ActivityTimesheetLogged       = "timesheet_logged"
)

// ContractActivity — запись аудита по контракту. Только добавляется,
// никогда не изменяется и не удаляется; есть только created_at.
type ContractActivity struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ContractID  uuid.UUID  `db:"contract_id" json:"contract_id"`
	ActorID     *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole   string     `db:"actor_role" json:"actor_role,omitempty"`
	Action      string     `db:"action" json:"action"`
	Description string     `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
