package reservation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelwizard/internal/pkg/card"
	"hotelwizard/internal/pkg/response"
	"hotelwizard/internal/wizard"
)

const declinedMessage = "Payment failed. Please try again."

// writeError maps wizard errors onto the response envelope.
func writeError(c *gin.Context, err error) {
	var cardErrs card.Errors
	var verr *wizard.ValidationError
	var cerr *wizard.CollaboratorError

	switch {
	case errors.As(err, &cardErrs):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "CARD_INVALID", "Please correct the highlighted card fields", cardErrs)
	case errors.As(err, &verr):
		if verr.Field != "" {
			response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr.Message, gin.H{"field": verr.Field})
			return
		}
		response.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr.Message)
	case errors.Is(err, wizard.ErrPaymentDeclined):
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_DECLINED", declinedMessage)
	case errors.As(err, &cerr):
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", cerr.Error())
	case errors.Is(err, wizard.ErrWrongStep):
		response.Error(c, http.StatusConflict, "WRONG_STEP", err.Error())
	case errors.Is(err, wizard.ErrTerminal):
		response.Error(c, http.StatusConflict, "COMPLETED", err.Error())
	case errors.Is(err, wizard.ErrPaymentInFlight):
		response.Error(c, http.StatusConflict, "PAYMENT_IN_FLIGHT", err.Error())
	case errors.Is(err, wizard.ErrWrongPaymentMethod):
		response.Error(c, http.StatusConflict, "WRONG_PAYMENT_METHOD", err.Error())
	case errors.Is(err, wizard.ErrSuperseded):
		response.Error(c, http.StatusConflict, "SUPERSEDED", err.Error())
	case errors.Is(err, wizard.ErrUnknownField):
		response.Error(c, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

// noticeOf turns a failed return completion into a notice for the guest.
func noticeOf(err error) wizard.Notice {
	var verr *wizard.ValidationError
	var cerr *wizard.CollaboratorError
	switch {
	case errors.As(err, &verr):
		return wizard.Notice{Kind: wizard.NoticeError, Message: verr.Message}
	case errors.As(err, &cerr):
		return wizard.Notice{Kind: wizard.NoticeError, Message: cerr.Error()}
	case errors.Is(err, wizard.ErrPaymentDeclined):
		return wizard.Notice{Kind: wizard.NoticeError, Message: declinedMessage}
	}
	return wizard.Notice{Kind: wizard.NoticeError, Message: "Payment processing failed. Please try again."}
}
