package handler

import (
	catalogapp "github.com/corebank/backend/internal/application/catalog"
	"github.com/corebank/backend/internal/domain/catalog"
	"github.com/gin-gonic/gin"
)

// DefinitionHandler handles product definition API endpoints
type DefinitionHandler struct {
	BaseHandler
	definitionService *catalogapp.DefinitionService
}

// NewDefinitionHandler creates a new DefinitionHandler
func NewDefinitionHandler(definitionService *catalogapp.DefinitionService) *DefinitionHandler {
	return &DefinitionHandler{
		definitionService: definitionService,
	}
}

// DefinitionListQuery carries the query parameters of the definition list endpoint
type DefinitionListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Type     string `form:"type"`
	Active   *bool  `form:"active"`
}

// Create godoc
// @Summary      Create a product definition
// @Description  Create a new deposit product definition, inactive by default
// @Tags         definitions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body catalogapp.CreateDefinitionRequest true "Definition creation request"
// @Success      201 {object} dto.Response{data=catalogapp.DefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions [post]
func (h *DefinitionHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.definitionService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, definition)
}

// Get godoc
// @Summary      Get a product definition
// @Description  Retrieve a definition by its business identifier
// @Tags         definitions
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Success      200 {object} dto.Response{data=catalogapp.DefinitionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier} [get]
func (h *DefinitionHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	definition, err := h.definitionService.Get(c.Request.Context(), tenantID, c.Param("identifier"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// List godoc
// @Summary      List product definitions
// @Description  List definitions with filtering, search and pagination
// @Tags         definitions
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type query string false "Filter by product type"
// @Param        active query bool false "Filter by activation state"
// @Param        search query string false "Search in identifier and name"
// @Success      200 {object} dto.Response{data=[]catalogapp.DefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions [get]
func (h *DefinitionHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query DefinitionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	filter := catalog.ProductDefinitionFilter{}
	filter.Page = query.Page
	filter.PageSize = query.PageSize
	filter.OrderBy = query.OrderBy
	filter.OrderDir = query.OrderDir
	filter.Search = query.Search
	filter.Active = query.Active
	if query.Type != "" {
		productType := catalog.ProductType(query.Type)
		if !productType.IsValid() {
			h.BadRequest(c, "Invalid product type")
			return
		}
		filter.Type = &productType
	}

	definitions, err := h.definitionService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definitions)
}

// Update godoc
// @Summary      Update a product definition
// @Description  Replace the mutable fields of a definition. Currency and term are frozen once instances reference it.
// @Tags         definitions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Param        request body catalogapp.UpdateDefinitionRequest true "Definition update request"
// @Success      200 {object} dto.Response{data=catalogapp.DefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier} [put]
func (h *DefinitionHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.UpdateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.definitionService.Update(c.Request.Context(), tenantID, c.Param("identifier"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// Delete godoc
// @Summary      Delete a product definition
// @Description  Delete a definition that no instance references
// @Tags         definitions
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier} [delete]
func (h *DefinitionHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.definitionService.Delete(c.Request.Context(), tenantID, c.Param("identifier")); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ApplyCommand godoc
// @Summary      Apply a definition command
// @Description  Activate or deactivate a definition and record the command in its history
// @Tags         definitions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Param        request body catalogapp.DefinitionCommandRequest true "Command"
// @Success      200 {object} dto.Response{data=catalogapp.DefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier}/commands [post]
func (h *DefinitionHandler) ApplyCommand(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.DefinitionCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	definition, err := h.definitionService.ApplyCommand(c.Request.Context(), tenantID, c.Param("identifier"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, definition)
}

// ListCommands godoc
// @Summary      List definition commands
// @Description  Return the ordered command history of a definition
// @Tags         definitions
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Success      200 {object} dto.Response{data=[]catalogapp.DefinitionCommandResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier}/commands [get]
func (h *DefinitionHandler) ListCommands(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	commands, err := h.definitionService.ListCommands(c.Request.Context(), tenantID, c.Param("identifier"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, commands)
}

// RecordDividend godoc
// @Summary      Record a dividend distribution
// @Description  Record a dividend distribution against a share definition. Re-submitting an equal (due-date, rate) pair is a no-op.
// @Tags         definitions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Param        request body catalogapp.DividendDistributionRequest true "Distribution"
// @Success      201 {object} dto.Response{data=catalogapp.DividendDistributionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier}/dividends [post]
func (h *DefinitionHandler) RecordDividend(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req catalogapp.DividendDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	distribution, err := h.definitionService.RecordDividendDistribution(c.Request.Context(), tenantID, c.Param("identifier"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, distribution)
}

// ListDividends godoc
// @Summary      List dividend distributions
// @Description  Return the recorded distributions of a definition ordered by due date
// @Tags         definitions
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        identifier path string true "Definition identifier"
// @Success      200 {object} dto.Response{data=[]catalogapp.DividendDistributionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /definitions/{identifier}/dividends [get]
func (h *DefinitionHandler) ListDividends(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	distributions, err := h.definitionService.ListDividendDistributions(c.Request.Context(), tenantID, c.Param("identifier"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, distributions)
}
