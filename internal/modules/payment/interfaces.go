package payment

import (
	"context"
	"time"

	"hotelwizard/internal/crm"
	"hotelwizard/internal/domain"
)

type attemptRepo interface {
	Create(ctx context.Context, a *domain.PaymentAttempt) error
	GetByTempID(ctx context.Context, tempID string) (*domain.PaymentAttempt, error)
	GetPaidByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentAttempt, error)
	AttachProviderRef(ctx context.Context, tempID, ref string) error
	MarkFailed(ctx context.Context, tempID, reason string) error
	MarkPaidIdempotent(ctx context.Context, tempID, providerRef string, paidAt time.Time) (bool, error)
	SetReservationID(ctx context.Context, tempID, reservationID string) error
}

type reservationWriter interface {
	CreateReservation(ctx context.Context, in crm.ReservationInput) (string, error)
}

// Provider is the payment processor behind both payment methods.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	GetCheckout(ctx context.Context, id string) (*Checkout, error)
	ChargeCard(ctx context.Context, req CardCharge) (*Charge, error)
}

type CheckoutRequest struct {
	Reference      string
	AmountMinor    int64
	Currency       string
	Description    string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

type Checkout struct {
	ID          string
	URL         string
	Paid        bool
	AmountMinor int64
	Currency    string
	Reference   string
	PaymentRef  string
}

// CardCharge carries raw card data for a single provider call.
type CardCharge struct {
	Reference      string
	AmountMinor    int64
	Currency       string
	Description    string
	HolderName     string
	Email          string
	Number         string
	ExpMonth       int64
	ExpYear        int64
	CVC            string
	IdempotencyKey string
}

type Charge struct {
	ID        string
	Status    string
	Succeeded bool
}
