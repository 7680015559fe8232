package dto

import (
	"github.com/ignatzorin/freelance-contracts/internal/models"
)

// ContractResponse represents a contract with its ledger totals
type ContractResponse struct {
	*models.Contract
	Totals *models.LedgerTotals `json:"totals,omitempty"`
}

// CancelContractResponse represents the outcome of a direct cancellation
type CancelContractResponse struct {
	Contract *models.Contract `json:"contract"`
	Refunded float64          `json:"refunded"`
	// RequiresAgreement signals that work has already been submitted and
	// cancellation must go through a mutual agreement request
	RequiresAgreement bool `json:"requires_agreement,omitempty"`
}

// PaginatedContractsResponse represents a paginated contract list
type PaginatedContractsResponse struct {
	Data       []models.Contract `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// UnreadCountResponse represents the unread notification counter
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
