package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotswapper-backend/internal/apperr"
	"slotswapper-backend/internal/auth"
	"slotswapper-backend/internal/ledger"
	"slotswapper-backend/internal/mw"
	"slotswapper-backend/internal/store"
	"slotswapper-backend/internal/swap"
)

// Version is reported by the welcome endpoint.
var Version = "1.0.0"

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store  store.Store
	ledger *ledger.Ledger
	swaps  *swap.Engine
	auth   *auth.Service
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, l *ledger.Ledger, e *swap.Engine, a *auth.Service, logger *zap.Logger) *Handler {
	return &Handler{
		store:  s,
		ledger: l,
		swaps:  e,
		auth:   a,
		logger: logger.Named("api"),
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidState), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error", "kind"}. Errors without a caller-facing
// message are logged and reported generically.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := apperr.Message(err)
	if msg == "" || status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", mw.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": apperr.Kind(err)})
}

// bind decodes the JSON body into v, answering 422 when it does not fit.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "binding"})
		return false
	}
	return true
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id", "kind": "binding"})
		return 0, false
	}
	return id, true
}
