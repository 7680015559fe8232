package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-contracts/internal/dto"
	"github.com/ignatzorin/freelance-contracts/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-contracts/internal/service"
)

type CancellationHandler struct {
	cancellations *service.CancellationService
}

// NewCancellationHandler создаёт новый хэндлер.
func NewCancellationHandler(cancellations *service.CancellationService) *CancellationHandler {
	return &CancellationHandler{cancellations: cancellations}
}

// Cancel обрабатывает POST /contracts/:id/cancel.
func (h *CancellationHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CancelContractRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.cancellations.CancelContract(c.Request.Context(), contractID, userID, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	resp := dto.CancelContractResponse{
		Contract:          result.Contract,
		Refunded:          result.Refunded,
		RequiresAgreement: result.RequiresAgreement,
	}
	if result.RequiresAgreement {
		common.RespondJSON(c, http.StatusConflict, dto.SuccessResponse{
			Message: "по контракту уже есть сданные работы, расторжение возможно только по соглашению сторон",
			Data:    resp,
		})
		return
	}

	common.RespondSuccess(c, http.StatusOK, "контракт расторгнут", resp)
}

// CreateRequest обрабатывает POST /contracts/:id/cancellation-request.
func (h *CancellationHandler) CreateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CreateCancellationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.cancellations.CreateCancellationRequest(c.Request.Context(), service.CreateCancellationInput{
		ContractID:             contractID,
		ActorID:                userID,
		Reason:                 req.Reason,
		ClientSplitPercent:     req.ClientSplitPercent,
		FreelancerSplitPercent: req.FreelancerSplitPercent,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "запрос на расторжение создан", request)
}

// Accept обрабатывает POST /contracts/:id/cancellation-request/accept.
func (h *CancellationHandler) Accept(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.cancellations.AcceptCancellation(c.Request.Context(), contractID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "расторжение принято, средства распределены", contract)
}

// Dispute обрабатывает POST /contracts/:id/cancellation-request/dispute.
func (h *CancellationHandler) Dispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.DisputeCancellationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.cancellations.DisputeCancellation(c.Request.Context(), contractID, userID, req.Description)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "спор открыт, контракт заморожен", dispute)
}

// Reject обрабатывает POST /contracts/:id/cancellation-request/reject.
func (h *CancellationHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.cancellations.RejectCancellation(c.Request.Context(), contractID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "запрос на расторжение закрыт", contract)
}

// ListRequests обрабатывает GET /contracts/:id/cancellation-requests.
func (h *CancellationHandler) ListRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	requests, err := h.cancellations.ListCancellations(c.Request.Context(), contractID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, requests)
}

// GetDispute обрабатывает GET /contracts/:id/dispute.
func (h *CancellationHandler) GetDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.cancellations.GetDispute(c.Request.Context(), contractID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dispute)
}
