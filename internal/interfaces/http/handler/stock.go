package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerapp "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
	"github.com/stockcore/backend/internal/interfaces/http/dto"
)

// StockHandler handles stock record and journal write endpoints
type StockHandler struct {
	BaseHandler
	availabilityService *ledgerapp.AvailabilityService
	movementService     *ledgerapp.MovementService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(
	availabilityService *ledgerapp.AvailabilityService,
	movementService *ledgerapp.MovementService,
) *StockHandler {
	return &StockHandler{
		availabilityService: availabilityService,
		movementService:     movementService,
	}
}

// ReceiveStockRequest represents a request to book incoming stock
type ReceiveStockRequest struct {
	ProductID      string  `json:"product_id" binding:"required,uuid"`
	LocationID     string  `json:"location_id" binding:"omitempty,uuid"`
	Quantity       float64 `json:"quantity" binding:"required,gt=0"`
	UnitCost       float64 `json:"unit_cost" binding:"gte=0"`
	CorrelationRef string  `json:"correlation_ref" binding:"required,min=1,max=100"`
	CausedBy       string  `json:"caused_by" binding:"omitempty,max=100"`
}

// AdjustStockRequest represents a request to correct on-hand stock
type AdjustStockRequest struct {
	ProductID      string  `json:"product_id" binding:"required,uuid"`
	LocationID     string  `json:"location_id" binding:"omitempty,uuid"`
	QuantityDelta  float64 `json:"quantity_delta" binding:"required"`
	Reason         string  `json:"reason" binding:"required,min=1,max=100"`
	CorrelationRef string  `json:"correlation_ref" binding:"required,min=1,max=100"`
	CausedBy       string  `json:"caused_by" binding:"omitempty,max=100"`
}

// TransferStockRequest represents a request to move stock between locations
type TransferStockRequest struct {
	ProductID      string  `json:"product_id" binding:"required,uuid"`
	FromLocationID string  `json:"from_location_id" binding:"required,uuid"`
	ToLocationID   string  `json:"to_location_id" binding:"required,uuid"`
	Quantity       float64 `json:"quantity" binding:"required,gt=0"`
	CorrelationRef string  `json:"correlation_ref" binding:"required,min=1,max=100"`
	CausedBy       string  `json:"caused_by" binding:"omitempty,max=100"`
}

// CheckAvailabilityItemRequest is one demand line in an availability check
type CheckAvailabilityItemRequest struct {
	ProductID string  `json:"product_id" binding:"required,uuid"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

// CheckAvailabilityRequest represents a multi-product availability check
type CheckAvailabilityRequest struct {
	Items []CheckAvailabilityItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SetReorderThresholdRequest represents a request to set the low-stock mark
type SetReorderThresholdRequest struct {
	Threshold float64 `json:"threshold" binding:"gte=0"`
}

// GetRecord godoc
// @Summary      Get stock record by ID
// @Tags         stock
// @Produce      json
// @Param        id path string true "Stock Record ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /stock/records/{id} [get]
func (h *StockHandler) GetRecord(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock record ID format")
		return
	}

	record, err := h.availabilityService.GetStockRecord(c.Request.Context(), recordID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// GetByProduct godoc
// @Summary      Get stock records for a product
// @Tags         stock
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response
// @Router       /stock/products/{product_id} [get]
func (h *StockHandler) GetByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	records, err := h.availabilityService.GetStockByProduct(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}

// List godoc
// @Summary      List stock records
// @Tags         stock
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        product_id query string false "Filter by product" format(uuid)
// @Param        location_id query string false "Filter by location" format(uuid)
// @Param        has_stock query bool false "Only records with available stock"
// @Param        below_threshold query bool false "Only records at or below their reorder threshold"
// @Success      200 {object} dto.Response
// @Router       /stock/records [get]
func (h *StockHandler) List(c *gin.Context) {
	filter, ok := h.buildListFilter(c)
	if !ok {
		return
	}

	result, err := h.availabilityService.ListStockRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// CheckAvailability godoc
// @Summary      Check availability for a set of product demands
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body CheckAvailabilityRequest true "Demand lines"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /stock/availability [post]
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	var req CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	items := make([]ledgerapp.AvailabilityItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		items = append(items, ledgerapp.AvailabilityItem{
			ProductID: productID,
			Quantity:  decimal.NewFromFloat(item.Quantity),
		})
	}

	report, err := h.availabilityService.CheckAvailability(c.Request.Context(), ledgerapp.CheckAvailabilityRequest{
		Items: items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// Receive godoc
// @Summary      Book incoming stock
// @Description  Increases on-hand quantity and writes a RECEIPT journal entry
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body ReceiveStockRequest true "Receipt details"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /stock/receipts [post]
func (h *StockHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	locationID, err := parseOptionalUUID(req.LocationID)
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	entry, err := h.movementService.Receive(c.Request.Context(), ledgerapp.ReceiveRequest{
		ProductID:      productID,
		LocationID:     locationID,
		Quantity:       decimal.NewFromFloat(req.Quantity),
		UnitCost:       decimal.NewFromFloat(req.UnitCost),
		CorrelationRef: req.CorrelationRef,
		CausedBy:       req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Adjust godoc
// @Summary      Adjust on-hand stock by a signed delta
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body AdjustStockRequest true "Adjustment details"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /stock/adjustments [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	locationID, err := parseOptionalUUID(req.LocationID)
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	entry, err := h.movementService.Adjust(c.Request.Context(), ledgerapp.AdjustRequest{
		ProductID:      productID,
		LocationID:     locationID,
		QuantityDelta:  decimal.NewFromFloat(req.QuantityDelta),
		Reason:         req.Reason,
		CorrelationRef: req.CorrelationRef,
		CausedBy:       req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Transfer godoc
// @Summary      Transfer stock between locations
// @Description  Writes a paired TRANSFER_OUT and TRANSFER_IN under one correlation reference
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body TransferStockRequest true "Transfer details"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /stock/transfers [post]
func (h *StockHandler) Transfer(c *gin.Context) {
	var req TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	fromLocationID, err := uuid.Parse(req.FromLocationID)
	if err != nil {
		h.BadRequest(c, "Invalid from location ID format")
		return
	}

	toLocationID, err := uuid.Parse(req.ToLocationID)
	if err != nil {
		h.BadRequest(c, "Invalid to location ID format")
		return
	}

	result, err := h.movementService.Transfer(c.Request.Context(), ledgerapp.TransferRequest{
		ProductID:      productID,
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Quantity:       decimal.NewFromFloat(req.Quantity),
		CorrelationRef: req.CorrelationRef,
		CausedBy:       req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// SetReorderThreshold godoc
// @Summary      Set the reorder threshold for a stock record
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Stock Record ID" format(uuid)
// @Param        request body SetReorderThresholdRequest true "Threshold"
// @Success      200 {object} dto.Response
// @Router       /stock/records/{id}/reorder-threshold [put]
func (h *StockHandler) SetReorderThreshold(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock record ID format")
		return
	}

	var req SetReorderThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	record, err := h.movementService.SetReorderThreshold(
		c.Request.Context(), recordID, decimal.NewFromFloat(req.Threshold))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// buildListFilter assembles a stock record list filter from query params.
// Returns false after writing an error response when a param is malformed.
func (h *StockHandler) buildListFilter(c *gin.Context) (shared.Filter, bool) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return shared.Filter{}, false
	}

	filter := filterFromListRequest(listReq)

	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return shared.Filter{}, false
		}
		filter.Filters["product_id"] = id
	}
	if locationID := c.Query("location_id"); locationID != "" {
		id, err := uuid.Parse(locationID)
		if err != nil {
			h.BadRequest(c, "Invalid location ID format")
			return shared.Filter{}, false
		}
		filter.Filters["location_id"] = id
	}
	if c.Query("unassigned") == "true" {
		filter.Filters["unassigned"] = true
	}
	if c.Query("has_stock") == "true" {
		filter.Filters["has_stock"] = true
	}
	if c.Query("below_threshold") == "true" {
		filter.Filters["below_threshold"] = true
	}

	return filter, true
}

// parseOptionalUUID parses an optional UUID string, mapping empty to nil
func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// filterFromListRequest converts pagination params into a repository filter
func filterFromListRequest(req dto.ListRequest) shared.Filter {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	return filter
}
