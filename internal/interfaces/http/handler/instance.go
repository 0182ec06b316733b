package handler

import (
	"time"

	"github.com/corebank/backend/internal/application/accounting"
	depositapp "github.com/corebank/backend/internal/application/deposit"
	"github.com/corebank/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InstanceHandler handles product instance API endpoints. Registry reads and
// metadata updates go through the InstanceService; lifecycle commands and
// transactions go through the CommandProcessor.
type InstanceHandler struct {
	BaseHandler
	instanceService  *depositapp.InstanceService
	commandProcessor *depositapp.CommandProcessor
	bridge           *accounting.Bridge
}

// NewInstanceHandler creates a new InstanceHandler
func NewInstanceHandler(
	instanceService *depositapp.InstanceService,
	commandProcessor *depositapp.CommandProcessor,
	bridge *accounting.Bridge,
) *InstanceHandler {
	return &InstanceHandler{
		instanceService:  instanceService,
		commandProcessor: commandProcessor,
		bridge:           bridge,
	}
}

// EntryListQuery carries the query parameters of the entries endpoint
type EntryListQuery struct {
	From      string `form:"date_range_start"`
	To        string `form:"date_range_end"`
	Direction string `form:"direction" binding:"omitempty,oneof=ASC DESC"`
}

// Create godoc
// @Summary      Open a product instance
// @Description  Open a new account in PENDING state against a product definition
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body depositapp.CreateInstanceRequest true "Instance creation request"
// @Success      201 {object} dto.Response{data=depositapp.InstanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances [post]
func (h *InstanceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req depositapp.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	instance, err := h.instanceService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, instance)
}

// Get godoc
// @Summary      Get a product instance
// @Description  Retrieve an instance by its account identifier
// @Tags         instances
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        account path string true "Account identifier"
// @Success      200 {object} dto.Response{data=depositapp.InstanceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances/{account} [get]
func (h *InstanceHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	instance, err := h.instanceService.Get(c.Request.Context(), tenantID, c.Param("account"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, instance)
}

// Update godoc
// @Summary      Update a product instance
// @Description  Replace the mutable metadata of an instance (beneficiaries, alternative account number)
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        account path string true "Account identifier"
// @Param        request body depositapp.UpdateInstanceRequest true "Instance update request"
// @Success      200 {object} dto.Response{data=depositapp.InstanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances/{account} [put]
func (h *InstanceHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req depositapp.UpdateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	instance, err := h.instanceService.Update(c.Request.Context(), tenantID, c.Param("account"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, instance)
}

// ApplyCommand godoc
// @Summary      Apply an instance command
// @Description  Apply a lifecycle command (ACTIVATE, CLOSE) to an instance. Activation opens the account in the ledger; closing requires a zero balance unless forced.
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        account path string true "Account identifier"
// @Param        request body depositapp.InstanceCommandRequest true "Command"
// @Success      200 {object} dto.Response{data=depositapp.InstanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      504 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances/{account}/commands [post]
func (h *InstanceHandler) ApplyCommand(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req depositapp.InstanceCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	instance, err := h.commandProcessor.ProcessCommand(c.Request.Context(), tenantID, c.Param("account"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, instance)
}

// PostTransaction godoc
// @Summary      Post a transaction
// @Description  Post a deposit or withdrawal against an active instance using one of its definition's permitted actions
// @Tags         instances
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        account path string true "Account identifier"
// @Param        request body depositapp.TransactionRequest true "Transaction"
// @Success      200 {object} dto.Response{data=depositapp.InstanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      504 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances/{account}/transactions [post]
func (h *InstanceHandler) PostTransaction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req depositapp.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	instance, err := h.commandProcessor.ProcessTransaction(c.Request.Context(), tenantID, c.Param("account"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, instance)
}

// ListEntries godoc
// @Summary      List account entries
// @Description  Return the ledger movements of an instance's account within a date range
// @Tags         instances
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        account path string true "Account identifier"
// @Param        date_range_start query string false "Range start (RFC3339)"
// @Param        date_range_end query string false "Range end (RFC3339)"
// @Param        direction query string false "Sort direction (ASC or DESC)"
// @Success      200 {object} dto.Response{data=[]ledger.AccountEntry}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      504 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /instances/{account}/entries [get]
func (h *InstanceHandler) ListEntries(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query EntryListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := ledger.EntryFilter{Ascending: query.Direction != "DESC"}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			h.BadRequest(c, "Invalid date_range_start, expected RFC3339")
			return
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			h.BadRequest(c, "Invalid date_range_end, expected RFC3339")
			return
		}
		filter.To = &to
	}

	// Resolve through the registry first so tenants only see their own accounts
	instance, err := h.instanceService.Get(c.Request.Context(), tenantID, c.Param("account"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	entries, err := h.bridge.FetchEntries(c.Request.Context(), instance.AccountIdentifier, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// ListByCustomer godoc
// @Summary      List a customer's instances
// @Description  Return the instances owned by a customer, most recently opened first
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]depositapp.InstanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id}/instances [get]
func (h *InstanceHandler) ListByCustomer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	instances, err := h.instanceService.ListByCustomer(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, instances)
}

// TransactionTypes godoc
// @Summary      List a customer's transaction types
// @Description  Return the transaction types available to a customer across their active instances
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]depositapp.TransactionTypeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id}/transaction-types [get]
func (h *InstanceHandler) TransactionTypes(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	types, err := h.instanceService.TransactionTypes(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, types)
}
