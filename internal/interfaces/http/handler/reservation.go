package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerapp "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/interfaces/http/dto"
)

// ReservationHandler handles reservation lifecycle endpoints
type ReservationHandler struct {
	BaseHandler
	reservationService *ledgerapp.ReservationService
	commitmentService  *ledgerapp.CommitmentService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(
	reservationService *ledgerapp.ReservationService,
	commitmentService *ledgerapp.CommitmentService,
) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		commitmentService:  commitmentService,
	}
}

// ReserveItemRequest is one product demand in a reservation request
type ReserveItemRequest struct {
	ProductID         string  `json:"product_id" binding:"required,uuid"`
	Quantity          float64 `json:"quantity" binding:"required,gt=0"`
	PreferredLocation string  `json:"preferred_location_id" binding:"omitempty,uuid"`
}

// CreateReservationRequest represents an all-or-nothing reservation request
type CreateReservationRequest struct {
	CorrelationRef string               `json:"correlation_ref" binding:"required,min=1,max=100"`
	Items          []ReserveItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CommitmentLineRequest addresses one allocation line of a reservation
type CommitmentLineRequest struct {
	AllocationID string  `json:"allocation_id" binding:"required,uuid"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
}

// FulfillReservationRequest drains committed stock into shipped stock.
// Omitting lines drains every open line in full.
type FulfillReservationRequest struct {
	Lines    []CommitmentLineRequest `json:"lines" binding:"omitempty,dive"`
	CausedBy string                  `json:"caused_by" binding:"omitempty,max=100"`
}

// ReleaseReservationRequest returns committed stock to available.
// Omitting lines releases every remaining line in full.
type ReleaseReservationRequest struct {
	Lines    []CommitmentLineRequest `json:"lines" binding:"omitempty,dive"`
	CausedBy string                  `json:"caused_by" binding:"omitempty,max=100"`
}

// Create godoc
// @Summary      Create a reservation
// @Description  Commits stock for every requested item or none at all. Retries once more on concurrent writer conflicts before giving up.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        request body CreateReservationRequest true "Reservation details"
// @Success      201 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	items := make([]ledgerapp.ReserveItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		preferred, err := parseOptionalUUID(item.PreferredLocation)
		if err != nil {
			h.BadRequest(c, "Invalid preferred location ID format")
			return
		}
		items = append(items, ledgerapp.ReserveItem{
			ProductID:         productID,
			Quantity:          decimal.NewFromFloat(item.Quantity),
			PreferredLocation: preferred,
		})
	}

	reservation, err := h.reservationService.Reserve(c.Request.Context(), ledgerapp.ReserveRequest{
		CorrelationRef: req.CorrelationRef,
		Items:          items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, reservation)
}

// Get godoc
// @Summary      Get reservation by ID
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), reservationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reservation)
}

// List godoc
// @Summary      List reservations
// @Description  Passing correlation_ref returns every reservation carrying that reference, unpaginated.
// @Tags         reservations
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        status query string false "Filter by status"
// @Param        correlation_ref query string false "Lookup by correlation reference"
// @Success      200 {object} dto.Response
// @Router       /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	if ref := c.Query("correlation_ref"); ref != "" {
		reservations, err := h.reservationService.ListByCorrelationRef(c.Request.Context(), ref)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, reservations)
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := filterFromListRequest(listReq)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	result, err := h.reservationService.ListReservations(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Fulfill godoc
// @Summary      Fulfill a reservation
// @Description  Ships committed stock, draining both on-hand and committed counters
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Param        request body FulfillReservationRequest false "Lines to fulfill, empty for all"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req FulfillReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	lines, ok := h.parseCommitmentLines(c, req.Lines)
	if !ok {
		return
	}

	reservation, err := h.commitmentService.Fulfill(c.Request.Context(), ledgerapp.FulfillRequest{
		ReservationID: reservationID,
		Lines:         lines,
		CausedBy:      req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reservation)
}

// Release godoc
// @Summary      Release a reservation
// @Description  Returns committed stock to available without shipping it
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Param        request body ReleaseReservationRequest false "Lines to release, empty for all"
// @Success      200 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req ReleaseReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	lines, ok := h.parseCommitmentLines(c, req.Lines)
	if !ok {
		return
	}

	reservation, err := h.commitmentService.Release(c.Request.Context(), ledgerapp.ReleaseRequest{
		ReservationID: reservationID,
		Lines:         lines,
		CausedBy:      req.CausedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reservation)
}

// parseCommitmentLines converts line requests, writing an error response
// and returning false on a malformed allocation ID.
func (h *ReservationHandler) parseCommitmentLines(c *gin.Context, reqLines []CommitmentLineRequest) ([]ledgerapp.CommitmentLine, bool) {
	if len(reqLines) == 0 {
		return nil, true
	}

	lines := make([]ledgerapp.CommitmentLine, 0, len(reqLines))
	for _, line := range reqLines {
		allocationID, err := uuid.Parse(line.AllocationID)
		if err != nil {
			h.BadRequest(c, "Invalid allocation ID format")
			return nil, false
		}
		lines = append(lines, ledgerapp.CommitmentLine{
			AllocationID: allocationID,
			Quantity:     decimal.NewFromFloat(line.Quantity),
		})
	}
	return lines, true
}
