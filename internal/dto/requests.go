package dto

import "time"

// CreateContractRequest represents the request to create a contract from
// an accepted offer
type CreateContractRequest struct {
	ClientID         string             `json:"client_id" binding:"required"`
	FreelancerID     string             `json:"freelancer_id" binding:"required"`
	OfferID          string             `json:"offer_id" binding:"required"`
	JobID            *string            `json:"job_id"`
	ProposalID       *string            `json:"proposal_id"`
	Title            string             `json:"title" binding:"required"`
	PaymentType      string             `json:"payment_type" binding:"required"`
	Budget           float64            `json:"budget"`
	HourlyRate       float64            `json:"hourly_rate"`
	EstimatedHours   float64            `json:"estimated_hours_per_week"`
	RevisionsAllowed int                `json:"revisions_allowed"`
	Deadline         *time.Time         `json:"deadline"`
	Milestones       []MilestoneRequest `json:"milestones"`
}

// MilestoneRequest represents a milestone definition within a contract
type MilestoneRequest struct {
	Title            string     `json:"title" binding:"required"`
	Amount           float64    `json:"amount" binding:"required"`
	ExpectedDelivery *time.Time `json:"expected_delivery"`
	RevisionsAllowed int        `json:"revisions_allowed"`
}

// ConfirmFundingRequest represents a payment gateway confirmation
type ConfirmFundingRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	MilestoneID *string `json:"milestone_id"`
	Reference   string  `json:"reference"`
}

// SubmitDeliverableRequest represents a work submission
type SubmitDeliverableRequest struct {
	Files   []DeliverableFileRequest `json:"files"`
	Message string                   `json:"message"`
}

// DeliverableFileRequest represents a single submitted file
type DeliverableFileRequest struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

// ApproveDeliverableRequest represents acceptance of a submission
type ApproveDeliverableRequest struct {
	DeliverableID string `json:"deliverable_id" binding:"required"`
	Message       string `json:"message"`
}

// RequestChangesRequest represents a revision request on a submission
type RequestChangesRequest struct {
	DeliverableID string `json:"deliverable_id" binding:"required"`
	Message       string `json:"message"`
}

// CancelContractRequest represents a direct cancellation
type CancelContractRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateCancellationRequest represents a mutual cancellation proposal
type CreateCancellationRequest struct {
	Reason                 string  `json:"reason" binding:"required"`
	ClientSplitPercent     float64 `json:"client_split_percentage"`
	FreelancerSplitPercent float64 `json:"freelancer_split_percentage"`
}

// DisputeCancellationRequest represents disputing cancellation terms
type DisputeCancellationRequest struct {
	Description string `json:"description"`
}

// RequestExtensionRequest represents a deadline extension proposal
type RequestExtensionRequest struct {
	MilestoneID      *string   `json:"milestone_id"`
	ProposedDeadline time.Time `json:"proposed_deadline" binding:"required"`
	Reason           string    `json:"reason"`
}

// RespondExtensionRequest represents the client decision on an extension
type RespondExtensionRequest struct {
	MilestoneID *string `json:"milestone_id"`
	Approve     bool    `json:"approve"`
}

// LogTimesheetRequest represents logged hours on an hourly contract
type LogTimesheetRequest struct {
	WeekStart time.Time `json:"week_start" binding:"required"`
	Hours     float64   `json:"hours" binding:"required"`
	Memo      string    `json:"memo"`
}
