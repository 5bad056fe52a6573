package crm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"hotelwizard/internal/wizard"
)

var ErrEmptyReservationID = errors.New("crm returned no reservation id")

// ReservationInput is the confirmed booking written to the CRM once payment
// has been captured.
type ReservationInput struct {
	Contact          wizard.Contact     `json:"contact"`
	Reservation      wizard.Reservation `json:"reservation"`
	RoomID           string             `json:"roomId"`
	PaymentMethod    string             `json:"paymentMethod"`
	PaymentReference string             `json:"paymentReference"`
	AmountPaid       float64            `json:"amountPaid"`
}

type reservationCreated struct {
	ID string `json:"id"`
}

// CreateReservation stores the reservation and returns its CRM id.
func (c *Client) CreateReservation(ctx context.Context, in ReservationInput) (string, error) {
	var out reservationCreated
	if err := c.do(ctx, http.MethodPost, "/reservations", nil, in, &out); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.ID)
	if id == "" {
		return "", ErrEmptyReservationID
	}
	return id, nil
}
