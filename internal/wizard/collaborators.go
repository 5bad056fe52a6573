package wizard

import "context"

// RoomFinder looks up rooms free for the whole stay. Dates are ISO-8601
// timestamps at UTC midnight.
type RoomFinder interface {
	SearchAvailableRooms(ctx context.Context, checkIn, checkOut string) ([]Room, error)
}

type RoomTypeSource interface {
	FetchRoomTypeOptions(ctx context.Context) ([]Option, error)
}

type InitiateRequest struct {
	Contact        Contact
	Reservation    Reservation
	RoomID         string
	Amount         float64
	ReturnURL      string
	CancelURL      string
	TempID         string
	IdempotencyKey string
}

type FinalizeRequest struct {
	Contact     Contact
	Reservation Reservation
	RoomID      string
	Token       string
	TempID      string
}

// CardPaymentRequest carries raw card data for exactly one call. Callers
// must not keep it.
type CardPaymentRequest struct {
	Contact        Contact
	Reservation    Reservation
	RoomID         string
	HolderName     string
	Number         string
	ExpMonth       string
	ExpYear        string
	CVV            string
	Amount         float64
	// IdempotencyKey identifies the draft and card. A draft already paid
	// with it is not charged again.
	IdempotencyKey string
}

// RedirectPayments is the hosted-checkout provider. Initiate returns the URL
// to send the guest to; Finalize returns the reservation id, or "" when the
// payment did not go through.
type RedirectPayments interface {
	InitiateExternalPayment(ctx context.Context, req InitiateRequest) (string, error)
	FinalizeExternalPayment(ctx context.Context, req FinalizeRequest) (string, error)
}

// CardPayments charges a card directly and returns the reservation id, or ""
// when declined.
type CardPayments interface {
	SubmitInFormCardPayment(ctx context.Context, req CardPaymentRequest) (string, error)
}

// ReturnURLBuilder builds the URLs the provider sends the guest back to. Both
// carry the temp id so the return can be matched to its draft.
type ReturnURLBuilder interface {
	ReturnURLs(tempID string) (successURL, cancelURL string, err error)
}
