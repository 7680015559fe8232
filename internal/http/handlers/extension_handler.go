package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/dto"
	"github.com/ignatzorin/freelance-contracts/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-contracts/internal/service"
)

type ExtensionHandler struct {
	extensions *service.ExtensionService
}

// NewExtensionHandler создаёт новый хэндлер.
func NewExtensionHandler(extensions *service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

// Request обрабатывает POST /contracts/:id/extension.
func (h *ExtensionHandler) Request(c *gin.Context) {
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

	var req dto.RequestExtensionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.RequestExtensionInput{
		ContractID:       contractID,
		ActorID:          userID,
		ProposedDeadline: req.ProposedDeadline,
		Reason:           req.Reason,
	}
	if req.MilestoneID != nil {
		id, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			common.RespondBadRequest(c, "milestone_id должен быть валидным UUID")
			return
		}
		in.MilestoneID = &id
	}

	contract, err := h.extensions.RequestExtension(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "запрос на перенос срока создан", contract)
}

// Respond обрабатывает POST /contracts/:id/extension/respond.
func (h *ExtensionHandler) Respond(c *gin.Context) {
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

	var req dto.RespondExtensionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.RespondExtensionInput{
		ContractID: contractID,
		ActorID:    userID,
		Approve:    req.Approve,
	}
	if req.MilestoneID != nil {
		id, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			common.RespondBadRequest(c, "milestone_id должен быть валидным UUID")
			return
		}
		in.MilestoneID = &id
	}

	contract, err := h.extensions.RespondExtension(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "ответ на запрос переноса сохранён", contract)
}
