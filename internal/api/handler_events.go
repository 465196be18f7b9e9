package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotswapper-backend/internal/auth"
	"slotswapper-backend/internal/ical"
	"slotswapper-backend/internal/ledger"
	"slotswapper-backend/internal/model"
)

type createEventRequest struct {
	Title     string    `json:"title" binding:"required"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type updateEventRequest struct {
	Title     *string           `json:"title"`
	StartTime *time.Time        `json:"start_time"`
	EndTime   *time.Time        `json:"end_time"`
	Status    *model.SlotStatus `json:"status"`
}

// ListEvents handles GET /api/events.
func (h *Handler) ListEvents(c *gin.Context) {
	slots, err := h.ledger.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if !bind(c, &req) {
		return
	}
	slot, err := h.ledger.Create(c.Request.Context(), auth.UserID(c), req.Title, req.StartTime, req.EndTime)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// GetEvent handles GET /api/events/:id.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	slot, err := h.ledger.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// UpdateEvent handles PUT /api/events/:id. Omitted fields are unchanged.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateEventRequest
	if !bind(c, &req) {
		return
	}
	slot, err := h.ledger.Update(c.Request.Context(), auth.UserID(c), id, ledger.SlotPatch{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteEvent handles DELETE /api/events/:id.
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.ledger.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportCalendar handles GET /api/events/calendar.ics.
func (h *Handler) ExportCalendar(c *gin.Context) {
	slots, err := h.ledger.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := ical.Encode(&buf, slots, time.Now()); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="slots.ics"`)
	c.Data(http.StatusOK, ical.ContentType, buf.Bytes())
}
