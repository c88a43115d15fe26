package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/interfaces/http/dto"
)

// MovementHandler handles journal read and reversal endpoints
type MovementHandler struct {
	BaseHandler
	availabilityService *ledgerapp.AvailabilityService
	reversalService     *ledgerapp.ReversalService
}

// NewMovementHandler creates a new MovementHandler
func NewMovementHandler(
	availabilityService *ledgerapp.AvailabilityService,
	reversalService *ledgerapp.ReversalService,
) *MovementHandler {
	return &MovementHandler{
		availabilityService: availabilityService,
		reversalService:     reversalService,
	}
}

// ReverseMovementRequest represents a request to compensate a movement
type ReverseMovementRequest struct {
	CausedBy string `json:"caused_by" binding:"omitempty,max=100"`
}

// Get godoc
// @Summary      Get movement by ID
// @Tags         movements
// @Produce      json
// @Param        id path string true "Movement ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /movements/{id} [get]
func (h *MovementHandler) Get(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	movement, err := h.availabilityService.GetMovement(c.Request.Context(), movementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movement)
}

// List godoc
// @Summary      List movements
// @Tags         movements
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        product_id query string false "Filter by product" format(uuid)
// @Param        kind query string false "Filter by movement kind"
// @Param        correlation_ref query string false "Filter by correlation reference"
// @Param        caused_by query string false "Filter by actor"
// @Success      200 {object} dto.Response
// @Router       /movements [get]
func (h *MovementHandler) List(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := filterFromListRequest(listReq)
	if filter.OrderBy == "created_at" {
		filter.OrderBy = "occurred_on"
	}

	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		filter.Filters["product_id"] = id
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Filters["kind"] = kind
	}
	if ref := c.Query("correlation_ref"); ref != "" {
		filter.Filters["correlation_ref"] = ref
	}
	if causedBy := c.Query("caused_by"); causedBy != "" {
		filter.Filters["caused_by"] = causedBy
	}

	result, err := h.availabilityService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListByStockRecord godoc
// @Summary      List movements for a stock record
// @Tags         movements
// @Produce      json
// @Param        id path string true "Stock Record ID" format(uuid)
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response
// @Router       /stock/records/{id}/movements [get]
func (h *MovementHandler) ListByStockRecord(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock record ID format")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := filterFromListRequest(listReq)
	if filter.OrderBy == "created_at" {
		filter.OrderBy = "occurred_on"
	}

	result, err := h.availabilityService.ListMovementsByStockRecord(c.Request.Context(), recordID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Reverse godoc
// @Summary      Reverse a movement
// @Description  Writes compensating journal entries undoing the stock effect of a past movement. Reversing one leg of a transfer reverses both legs.
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        id path string true "Movement ID" format(uuid)
// @Param        request body ReverseMovementRequest false "Reversal details"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /movements/{id}/reverse [post]
func (h *MovementHandler) Reverse(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	var req ReverseMovementRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.reversalService.Reverse(c.Request.Context(), ledgerapp.ReverseRequest{
		MovementID: movementID,
		CausedBy:   req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}
