package payment

import (
	"time"

	"hotelwizard/internal/domain"
)

type AttemptResponse struct {
	TempID        string     `json:"temp_id" example:"3f0c2a8e-0d3b-4a55-9f0e-3c6e1a0b7d11"`
	Method        string     `json:"method" example:"card"`
	Status        string     `json:"status" example:"paid"`
	Amount        string     `json:"amount" example:"200.00"`
	Currency      string     `json:"currency" example:"php"`
	RoomID        string     `json:"room_id" example:"a0R1"`
	CardBrand     string     `json:"card_brand,omitempty" example:"visa"`
	CardLast4     string     `json:"card_last4,omitempty" example:"1111"`
	ReservationID string     `json:"reservation_id,omitempty" example:"a1B2"`
	FailureReason string     `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	Error   struct {
		Code    string `json:"code" example:"NOT_FOUND"`
		Message string `json:"message" example:"payment attempt not found"`
	} `json:"error"`
}

func toAttemptResponse(a *domain.PaymentAttempt) AttemptResponse {
	return AttemptResponse{
		TempID:        a.TempID,
		Method:        string(a.Method),
		Status:        string(a.Status),
		Amount:        a.Amount,
		Currency:      a.Currency,
		RoomID:        a.RoomID,
		CardBrand:     a.CardBrand,
		CardLast4:     a.CardLast4,
		ReservationID: a.ReservationID,
		FailureReason: a.FailureReason,
		PaidAt:        a.PaidAt,
		CreatedAt:     a.CreatedAt,
	}
}
