package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hotelwizard/internal/domain"
	"hotelwizard/internal/pkg/response"
)

type attemptReader interface {
	Attempt(ctx context.Context, tempID string) (*domain.PaymentAttempt, error)
}

type Handler struct {
	service attemptReader
	loggerf func(format string, args ...interface{})
}

func NewHandler(service attemptReader, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments/:tempId", h.GetAttempt)
}

// GetAttempt godoc
// @Summary      Payment attempt status
// @Description  Returns the ledger entry for a payment attempt. Card data is limited to brand and last four digits.
// @Tags         Payments
// @Produce      json
// @Param        tempId path string true "Attempt temp id"
// @Success      200 {object} AttemptResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payments/{tempId} [get]
func (h *Handler) GetAttempt(c *gin.Context) {
	tempID := strings.TrimSpace(c.Param("tempId"))
	if tempID == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "temp id is required")
		return
	}
	a, err := h.service.Attempt(c.Request.Context(), tempID)
	if err != nil {
		if errors.Is(err, ErrUnknownAttempt) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		h.loggerf("level=error msg=payment attempt lookup failed temp_id=%s err=%v", tempID, err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	response.Success(c, http.StatusOK, toAttemptResponse(a))
}
