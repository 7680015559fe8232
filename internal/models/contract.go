package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Contract — корневой агрегат сделки между клиентом и фрилансером.
// Мутируется только через settlement сервис, никогда не удаляется.
type Contract struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ContractID   string     `db:"contract_id" json:"contract_id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	OfferID      uuid.UUID  `db:"offer_id" json:"offer_id"`
	JobID        *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	ProposalID   *uuid.UUID `db:"proposal_id" json:"proposal_id,omitempty"`
	Title        string     `db:"title" json:"title"`

	PaymentType           PaymentType `db:"payment_type" json:"payment_type"`
	Budget                float64     `db:"budget" json:"budget"`
	HourlyRate            float64     `db:"hourly_rate" json:"hourly_rate,omitempty"`
	EstimatedHoursPerWeek float64     `db:"estimated_hours_per_week" json:"estimated_hours_per_week,omitempty"`

	FundedAmount float64 `db:"funded_amount" json:"funded_amount"`
	TotalPaid    float64 `db:"total_paid" json:"total_paid"`
	Balance      float64 `db:"balance" json:"balance"`

	// Счётчик правок для fixed контрактов; milestone контракты ведут
	// учёт на уровне вехи.
	RevisionsAllowed int `db:"revisions_allowed" json:"revisions_allowed"`
	RevisionsUsed    int `db:"revisions_used" json:"revisions_used"`

	Status   ContractStatus `db:"status" json:"status"`
	Deadline *time.Time     `db:"deadline" json:"deadline,omitempty"`

	Milestones   MilestoneList   `db:"milestones" json:"milestones,omitempty"`
	Deliverables DeliverableList `db:"deliverables" json:"deliverables,omitempty"`
	Timesheets   TimesheetList   `db:"timesheets" json:"timesheets,omitempty"`
	// extension_request хранится в JSONB и гидрируется репозиторием.
	ExtensionRequest *ExtensionRequest `db:"-" json:"extension_request,omitempty"`

	CancelledBy      *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	LastSubmissionAt *time.Time `db:"last_submission_at" json:"last_submission_at,omitempty"`

	// Версия агрегата для оптимистичной блокировки.
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContractMilestone — веха milestone контракта со своим циклом
// финансирования, сдачи и выплаты.
type ContractMilestone struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Amount           float64           `json:"amount"`
	ExpectedDelivery *time.Time        `json:"expected_delivery,omitempty"`
	Status           MilestoneStatus   `json:"status"`
	IsFunded         bool              `json:"is_funded"`
	RevisionsAllowed int               `json:"revisions_allowed"`
	Deliverables     []Deliverable     `json:"deliverables,omitempty"`
	ExtensionRequest *ExtensionRequest `json:"extension_request,omitempty"`
}

// Deliverable — версионированная сдача работы по контракту или вехе.
type Deliverable struct {
	ID          uuid.UUID         `json:"id"`
	SubmittedBy uuid.UUID         `json:"submitted_by"`
	Files       []DeliverableFile `json:"files,omitempty"`
	Message     string            `json:"message,omitempty"`
	Status      DeliverableStatus `json:"status"`
	// Version — строго возрастающий счётчик сдач внутри контракта/вехи.
	Version int `json:"version"`
	// RevisionsRequested растёт монотонно и не превышает разрешённый лимит.
	RevisionsRequested int        `json:"revisions_requested"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
}

// DeliverableFile — ссылка на файл во внешнем хранилище.
type DeliverableFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Timesheet — учёт часов по hourly контракту за неделю.
type Timesheet struct {
	ID        uuid.UUID `json:"id"`
	WeekStart time.Time `json:"week_start"`
	Hours     float64   `json:"hours"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtensionRequest — запрос на перенос срока контракта или вехи.
type ExtensionRequest struct {
	RequestedBy      uuid.UUID       `json:"requested_by"`
	ProposedDeadline time.Time       `json:"proposed_deadline"`
	Reason           string          `json:"reason"`
	Status           ExtensionStatus `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	RespondedAt      *time.Time      `json:"responded_at,omitempty"`
}

// MilestoneByID возвращает веху по идентификатору.
func (c *Contract) MilestoneByID(id uuid.UUID) *ContractMilestone {
	for i := range c.Milestones {
		if c.Milestones[i].ID == id {
			return &c.Milestones[i]
		}
	}
	return nil
}

// DeliverableByID возвращает сдачу уровня контракта по идентификатору.
func (c *Contract) DeliverableByID(id uuid.UUID) *Deliverable {
	for i := range c.Deliverables {
		if c.Deliverables[i].ID == id {
			return &c.Deliverables[i]
		}
	}
	return nil
}

// DeliverableByID возвращает сдачу вехи по идентификатору.
func (m *ContractMilestone) DeliverableByID(id uuid.UUID) *Deliverable {
	for i := range m.Deliverables {
		if m.Deliverables[i].ID == id {
			return &m.Deliverables[i]
		}
	}
	return nil
}

// EscrowedMilestones возвращает вехи, чьё финансирование удержано в
// эскроу: профинансированные, но ещё не выплаченные и не отменённые.
func (c *Contract) EscrowedMilestones() []*ContractMilestone {
	var out []*ContractMilestone
	for i := range c.Milestones {
		switch c.Milestones[i].Status {
		case MilestoneStatusFunded, MilestoneStatusSubmitted,
			MilestoneStatusChangesRequested, MilestoneStatusApproved:
			out = append(out, &c.Milestones[i])
		}
	}
	return out
}

// HasDeliverables сообщает, была ли по контракту хотя бы одна сдача
// (на уровне контракта или любой вехи).
func (c *Contract) HasDeliverables() bool {
	if len(c.Deliverables) > 0 {
		return true
	}
	for i := range c.Milestones {
		if len(c.Milestones[i].Deliverables) > 0 {
			return true
		}
	}
	return false
}

// RoundMoney округляет сумму до центов.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// MilestoneList хранится в contracts.milestones как JSONB.
type MilestoneList []ContractMilestone

func (l MilestoneList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *MilestoneList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// DeliverableList хранится в contracts.deliverables как JSONB.
type DeliverableList []Deliverable

func (l DeliverableList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *DeliverableList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// TimesheetList хранится в contracts.timesheets как JSONB.
type TimesheetList []Timesheet

func (l TimesheetList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *TimesheetList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("models: неподдерживаемый тип JSONB колонки %T", src)
	}
}
