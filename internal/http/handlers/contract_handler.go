package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/dto"
	"github.com/ignatzorin/freelance-contracts/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-contracts/internal/models"
	"github.com/ignatzorin/freelance-contracts/internal/service"
	"github.com/ignatzorin/freelance-contracts/internal/validation"
)

type ContractHandler struct {
	settlements *service.SettlementService
	activity    *service.ActivityService
}

// NewContractHandler создаёт новый хэндлер.
func NewContractHandler(settlements *service.SettlementService, activity *service.ActivityService) *ContractHandler {
	return &ContractHandler{settlements: settlements, activity: activity}
}

// CreateContract обрабатывает POST /contracts.
func (h *ContractHandler) CreateContract(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	var req dto.CreateContractRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateContractTitle(req.Title); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateAmount("сумма бюджета", req.Budget); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		common.RespondBadRequest(c, "client_id должен быть валидным UUID")
		return
	}
	if clientID != userID && role != models.RoleAdmin {
		common.RespondForbidden(c, "создать контракт можно только от имени своего клиента")
		return
	}
	freelancerID, err := uuid.Parse(req.FreelancerID)
	if err != nil {
		common.RespondBadRequest(c, "freelancer_id должен быть валидным UUID")
		return
	}
	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		common.RespondBadRequest(c, "offer_id должен быть валидным UUID")
		return
	}

	in := service.CreateContractInput{
		ClientID:         clientID,
		FreelancerID:     freelancerID,
		OfferID:          offerID,
		Title:            req.Title,
		PaymentType:      models.PaymentType(req.PaymentType),
		Budget:           req.Budget,
		HourlyRate:       req.HourlyRate,
		EstimatedHours:   req.EstimatedHours,
		RevisionsAllowed: req.RevisionsAllowed,
		Deadline:         req.Deadline,
	}
	if req.JobID != nil {
		id, err := uuid.Parse(*req.JobID)
		if err != nil {
			common.RespondBadRequest(c, "job_id должен быть валидным UUID")
			return
		}
		in.JobID = &id
	}
	if req.ProposalID != nil {
		id, err := uuid.Parse(*req.ProposalID)
		if err != nil {
			common.RespondBadRequest(c, "proposal_id должен быть валидным UUID")
			return
		}
		in.ProposalID = &id
	}
	for _, m := range req.Milestones {
		in.Milestones = append(in.Milestones, service.MilestoneInput{
			Title:            m.Title,
			Amount:           m.Amount,
			ExpectedDelivery: m.ExpectedDelivery,
			RevisionsAllowed: m.RevisionsAllowed,
		})
	}

	contract, err := h.settlements.CreateContract(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "контракт создан", contract)
}

// GetContract обрабатывает GET /contracts/:id.
func (h *ContractHandler) GetContract(c *gin.Context) {
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

	contract, err := h.settlements.GetContract(c.Request.Context(), contractID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, contract)
}

// ListContracts обрабатывает GET /contracts.
func (h *ContractHandler) ListContracts(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	contracts, err := h.settlements.ListUserContracts(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.PaginatedContractsResponse{
		Data: contracts,
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: len(contracts) == limit,
		},
	})
}

// ConfirmFunding обрабатывает POST /contracts/:id/funding.
// Вызывается клиентом или платёжным шлюзом после успешного списания.
func (h *ContractHandler) ConfirmFunding(c *gin.Context) {
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

	var req dto.ConfirmFundingRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.ConfirmFundingInput{
		ContractID: contractID,
		Amount:     req.Amount,
		Reference:  req.Reference,
		ActorID:    userID,
		ActorRole:  role,
	}
	if req.MilestoneID != nil {
		id, err := uuid.Parse(*req.MilestoneID)
		if err != nil {
			common.RespondBadRequest(c, "milestone_id должен быть валидным UUID")
			return
		}
		in.MilestoneID = &id
	}

	contract, err := h.settlements.ConfirmFunding(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "финансирование зачислено", contract)
}

// GetActivity обрабатывает GET /contracts/:id/activity.
func (h *ContractHandler) GetActivity(c *gin.Context) {
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

	limit, offset := common.GetPagination(c)
	entries, err := h.activity.ListByContract(c.Request.Context(), contractID, userID, role, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, entries)
}

// GetTransactions обрабатывает GET /contracts/:id/transactions.
func (h *ContractHandler) GetTransactions(c *gin.Context) {
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

	entries, err := h.settlements.ListLedger(c.Request.Context(), contractID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, entries)
}

// ActivateContract обрабатывает POST /contracts/:id/activate.
func (h *ContractHandler) ActivateContract(c *gin.Context) {
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

	contract, err := h.settlements.ActivateHourlyContract(c.Request.Context(), contractID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "контракт активирован", contract)
}

// EndContract обрабатывает POST /contracts/:id/end.
func (h *ContractHandler) EndContract(c *gin.Context) {
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

	contract, err := h.settlements.EndHourlyContract(c.Request.Context(), contractID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "контракт завершён", contract)
}

// LogTimesheet обрабатывает POST /contracts/:id/timesheets.
func (h *ContractHandler) LogTimesheet(c *gin.Context) {
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

	var req dto.LogTimesheetRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateHours(req.Hours); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.settlements.LogTimesheet(c.Request.Context(), service.LogTimesheetInput{
		ContractID: contractID,
		ActorID:    userID,
		WeekStart:  req.WeekStart,
		Hours:      req.Hours,
		Memo:       req.Memo,
	})
	if err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "часы учтены", contract)
}
