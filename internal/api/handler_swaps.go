package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotswapper-backend/internal/auth"
)

type swapRequest struct {
	MySlotID    int64 `json:"my_slot_id" binding:"required"`
	TheirSlotID int64 `json:"their_slot_id" binding:"required"`
}

type swapResponse struct {
	Accept *bool `json:"accept" binding:"required"`
}

// SwappableSlots handles GET /api/swappable-slots.
func (h *Handler) SwappableSlots(c *gin.Context) {
	market, err := h.ledger.ListExchangeable(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

// CreateSwapRequest handles POST /api/swap-request.
func (h *Handler) CreateSwapRequest(c *gin.Context) {
	var req swapRequest
	if !bind(c, &req) {
		return
	}
	proposal, err := h.swaps.Propose(c.Request.Context(), auth.UserID(c), req.MySlotID, req.TheirSlotID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// RespondSwapRequest handles POST /api/swap-response/:id.
func (h *Handler) RespondSwapRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req swapResponse
	if !bind(c, &req) {
		return
	}
	proposal, err := h.swaps.Respond(c.Request.Context(), auth.UserID(c), id, *req.Accept)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// IncomingSwapRequests handles GET /api/swap-requests/incoming.
func (h *Handler) IncomingSwapRequests(c *gin.Context) {
	details, err := h.swaps.ListIncoming(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// OutgoingSwapRequests handles GET /api/swap-requests/outgoing.
func (h *Handler) OutgoingSwapRequests(c *gin.Context) {
	details, err := h.swaps.ListOutgoing(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// WithdrawSwapRequest handles DELETE /api/swap-request/:id.
func (h *Handler) WithdrawSwapRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.swaps.Withdraw(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
