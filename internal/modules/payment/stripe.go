package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider implements Provider with Stripe Checkout for the redirect
// method and PaymentIntents for in-form cards.
type StripeProvider struct {
	sc *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProvider{sc: sc}
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("temp_id", req.Reference)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Checkout{ID: s.ID, URL: s.URL, Reference: s.ClientReferenceID}, nil
}

func (p *StripeProvider) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	out := &Checkout{
		ID:          s.ID,
		URL:         s.URL,
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountMinor: s.AmountTotal,
		Currency:    string(s.Currency),
		Reference:   s.ClientReferenceID,
	}
	if s.PaymentIntent != nil {
		out.PaymentRef = s.PaymentIntent.ID
	}
	return out, nil
}

func (p *StripeProvider) ChargeCard(ctx context.Context, req CardCharge) (*Charge, error) {
	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(req.Number),
			ExpMonth: stripe.Int64(req.ExpMonth),
			ExpYear:  stripe.Int64(req.ExpYear),
			CVC:      stripe.String(req.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(req.HolderName),
		},
	}
	if req.Email != "" {
		pmParams.BillingDetails.Email = stripe.String(req.Email)
	}
	pmParams.Context = ctx
	pm, err := p.sc.PaymentMethods.New(pmParams)
	if err != nil {
		return nil, mapStripeError(err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(req.Currency),
		PaymentMethod:      stripe.String(pm.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{string(stripe.PaymentMethodTypeCard)}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Description),
	}
	piParams.Context = ctx
	piParams.AddMetadata("temp_id", req.Reference)
	if req.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(req.IdempotencyKey)
	}
	pi, err := p.sc.PaymentIntents.New(piParams)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Charge{
		ID:        pi.ID,
		Status:    string(pi.Status),
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = "Payment failed. Please try again."
		}
		return &ProviderError{
			Code:     string(se.Code),
			Message:  msg,
			Declined: se.Type == stripe.ErrorTypeCard,
			Err:      err,
		}
	}
	return err
}

var _ Provider = (*StripeProvider)(nil)
