package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/dto"
	"github.com/ignatzorin/freelance-contracts/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/service"
	"github.com/ignatzorin/freelance-contracts/internal/storage"
	"github.com/ignatzorin/freelance-contracts/internal/validation"
)

type DeliverableHandler struct {
	settlements *service.SettlementService
	archiver    *storage.DeliverableArchiver
}

// NewDeliverableHandler создаёт новый хэндлер.
func NewDeliverableHandler(settlements *service.SettlementService, archiver *storage.DeliverableArchiver) *DeliverableHandler {
	return &DeliverableHandler{settlements: settlements, archiver: archiver}
}

func deliverableFiles(req []dto.DeliverableFileRequest) ([]models.DeliverableFile, error) {
	urls := make([]string, 0, len(req))
	for _, f := range req {
		urls = append(urls, f.URL)
	}
	if err := validation.ValidateFiles(urls); err != nil {
		return nil, err
	}

	files := make([]models.DeliverableFile, 0, len(req))
	for _, f := range req {
		files = append(files, models.DeliverableFile{URL: f.URL, Name: f.Name})
	}
	return files, nil
}

// Submit обрабатывает POST /contracts/:id/deliverables.
func (h *DeliverableHandler) Submit(c *gin.Context) {
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

	var req dto.SubmitDeliverableRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	files, err := deliverableFiles(req.Files)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.settlements.SubmitDeliverable(c.Request.Context(), service.SubmitDeliverableInput{
		ContractID: contractID,
		ActorID:    userID,
		Files:      files,
		Message:    req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "работа сдана на проверку", contract)
}

// Approve обрабатывает POST /contracts/:id/deliverables/approve.
func (h *DeliverableHandler) Approve(c *gin.Context) {
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

	var req dto.ApproveDeliverableRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	deliverableID, err := uuid.Parse(req.DeliverableID)
	if err != nil {
		common.RespondBadRequest(c, "deliverable_id должен быть валидным UUID")
		return
	}

	contract, err := h.settlements.ApproveDeliverable(c.Request.Context(), service.ApproveDeliverableInput{
		ContractID:    contractID,
		DeliverableID: deliverableID,
		ActorID:       userID,
		Message:       req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа принята, выплата проведена", contract)
}

// RequestChanges обрабатывает POST /contracts/:id/deliverables/request-changes.
func (h *DeliverableHandler) RequestChanges(c *gin.Context) {
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

	var req dto.RequestChangesRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	deliverableID, err := uuid.Parse(req.DeliverableID)
	if err != nil {
		common.RespondBadRequest(c, "deliverable_id должен быть валидным UUID")
		return
	}

	contract, err := h.settlements.RequestDeliverableChanges(c.Request.Context(), service.RequestChangesInput{
		ContractID:    contractID,
		DeliverableID: deliverableID,
		ActorID:       userID,
		Message:       req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "правки запрошены", contract)
}

// SubmitMilestone обрабатывает POST /contracts/:id/milestones/:milestoneId/deliverables.
func (h *DeliverableHandler) SubmitMilestone(c *gin.Context) {
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
	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitDeliverableRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	files, err := deliverableFiles(req.Files)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.settlements.SubmitMilestoneDeliverable(c.Request.Context(), service.SubmitMilestoneDeliverableInput{
		ContractID:  contractID,
		MilestoneID: milestoneID,
		ActorID:     userID,
		Files:       files,
		Message:     req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "работа по вехе сдана на проверку", contract)
}

// ApproveMilestone обрабатывает POST /contracts/:id/milestones/:milestoneId/deliverables/approve.
func (h *DeliverableHandler) ApproveMilestone(c *gin.Context) {
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
	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ApproveDeliverableRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	deliverableID, err := uuid.Parse(req.DeliverableID)
	if err != nil {
		common.RespondBadRequest(c, "deliverable_id должен быть валидным UUID")
		return
	}

	contract, err := h.settlements.ApproveMilestoneDeliverable(c.Request.Context(), service.ApproveMilestoneDeliverableInput{
		ContractID:    contractID,
		MilestoneID:   milestoneID,
		DeliverableID: deliverableID,
		ActorID:       userID,
		Message:       req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "веха оплачена", contract)
}

// RequestMilestoneChanges обрабатывает POST /contracts/:id/milestones/:milestoneId/deliverables/request-changes.
func (h *DeliverableHandler) RequestMilestoneChanges(c *gin.Context) {
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
	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RequestChangesRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	deliverableID, err := uuid.Parse(req.DeliverableID)
	if err != nil {
		common.RespondBadRequest(c, "deliverable_id должен быть валидным UUID")
		return
	}

	contract, err := h.settlements.RequestMilestoneDeliverableChanges(c.Request.Context(), service.RequestMilestoneChangesInput{
		ContractID:    contractID,
		MilestoneID:   milestoneID,
		DeliverableID: deliverableID,
		ActorID:       userID,
		Message:       req.Message,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "правки по вехе запрошены", contract)
}

// DownloadFiles обрабатывает GET /contracts/:id/deliverables/files.
// Отдаёт zip архив со всеми файлами сдач контракта.
func (h *DeliverableHandler) DownloadFiles(c *gin.Context) {
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

	files, err := h.settlements.CollectDeliverableFiles(c.Request.Context(), contractID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}
	if len(files) == 0 {
		common.RespondNotFound(c, "по контракту нет сданных файлов")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=deliverables_%s.zip", contractID))
	if err := h.archiver.WriteZip(c.Request.Context(), files, c.Writer); err != nil {
		// Заголовки уже ушли, остаётся оборвать соединение.
		c.Abort()
	}
}
