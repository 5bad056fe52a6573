package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hotelwizard/internal/crm"
	"hotelwizard/internal/domain"
	"hotelwizard/internal/pkg/card"
	"hotelwizard/internal/wizard"
)

const checkoutTokenPlaceholder = "{CHECKOUT_SESSION_ID}"

type Config struct {
	Currency string
}

// Service takes payments for confirmed drafts and writes the reservation to
// the CRM once the money is captured. Every attempt is recorded in the ledger.
type Service struct {
	attempts     attemptRepo
	reservations reservationWriter
	provider     Provider
	loggerf      func(format string, args ...interface{})
	now          func() time.Time

	currency string
}

func NewService(attempts attemptRepo, reservations reservationWriter, provider Provider, cfg Config, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = strings.ToLower(wizard.CurrencyCode)
	}
	return &Service{
		attempts:     attempts,
		reservations: reservations,
		provider:     provider,
		loggerf:      loggerf,
		now:          time.Now,
		currency:     currency,
	}
}

// InitiateExternalPayment opens a hosted checkout and returns its URL.
func (s *Service) InitiateExternalPayment(ctx context.Context, req wizard.InitiateRequest) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	amount, minor, err := normalizeAmount(req.Amount)
	if err != nil {
		return "", err
	}
	a := &domain.PaymentAttempt{
		TempID:         req.TempID,
		IdempotencyKey: req.IdempotencyKey,
		Method:         domain.AttemptMethodRedirect,
		RoomID:         req.RoomID,
		Amount:         amount,
		Currency:       s.currency,
		GuestEmail:     req.Contact.Email,
		Status:         domain.AttemptStatusCreated,
	}
	if err := s.attempts.Create(ctx, a); err != nil {
		return "", fmt.Errorf("save payment attempt failed: %w", err)
	}

	checkout, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		Reference:      req.TempID,
		AmountMinor:    minor,
		Currency:       s.currency,
		Description:    describe(req.Reservation),
		CustomerEmail:  req.Contact.Email,
		SuccessURL:     withCheckoutToken(req.ReturnURL),
		CancelURL:      req.CancelURL,
		IdempotencyKey: "checkout-" + req.TempID,
	})
	if err != nil {
		s.markFailed(ctx, req.TempID, err)
		return "", err
	}
	if err := s.attempts.AttachProviderRef(ctx, req.TempID, checkout.ID); err != nil {
		s.loggerf("level=error msg=failed to attach checkout to attempt temp_id=%s checkout_id=%s err=%v", req.TempID, checkout.ID, err)
	}
	s.loggerf("level=info msg=checkout created temp_id=%s checkout_id=%s amount=%s currency=%s", req.TempID, checkout.ID, amount, s.currency)
	return checkout.URL, nil
}

// FinalizeExternalPayment verifies the returned checkout and records the
// reservation. It returns "" when the checkout was not paid. Finalizing the
// same temp id twice returns the first reservation id.
func (s *Service) FinalizeExternalPayment(ctx context.Context, req wizard.FinalizeRequest) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	a, err := s.attempts.GetByTempID(ctx, req.TempID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnknownAttempt
		}
		return "", err
	}
	if a.Status == domain.AttemptStatusPaid && a.ReservationID != "" {
		s.loggerf("level=info msg=idempotent finalize already recorded temp_id=%s reservation_id=%s", a.TempID, a.ReservationID)
		return a.ReservationID, nil
	}

	checkout, err := s.provider.GetCheckout(ctx, req.Token)
	if err != nil {
		return "", err
	}
	if checkout.Reference != a.TempID {
		s.loggerf("level=error msg=checkout reference mismatch temp_id=%s checkout_ref=%s", a.TempID, checkout.Reference)
		return "", ErrReferenceMismatch
	}
	if !checkout.Paid {
		_ = s.attempts.MarkFailed(ctx, a.TempID, "checkout not paid")
		s.loggerf("level=info msg=checkout not paid temp_id=%s checkout_id=%s", a.TempID, checkout.ID)
		return "", nil
	}
	if !amountEqual(minorToDecimal(checkout.AmountMinor), a.Amount) {
		reason := fmt.Sprintf("amount mismatch checkout=%d expected=%s", checkout.AmountMinor, a.Amount)
		_ = s.attempts.MarkFailed(ctx, a.TempID, reason)
		return "", ErrAmountMismatch
	}

	ref := checkout.PaymentRef
	if ref == "" {
		ref = checkout.ID
	}
	return s.capture(ctx, a, ref, domain.AttemptMethodRedirect, req.Contact, req.Reservation, req.RoomID)
}

// SubmitInFormCardPayment charges the card and records the reservation. A
// draft that was already paid returns its reservation id without a second
// charge. It returns "" when the provider did not complete the charge.
func (s *Service) SubmitInFormCardPayment(ctx context.Context, req wizard.CardPaymentRequest) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	if req.IdempotencyKey != "" {
		paid, err := s.attempts.GetPaidByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil && paid.ReservationID != "" {
			s.loggerf("level=info msg=idempotent card payment already recorded temp_id=%s reservation_id=%s", paid.TempID, paid.ReservationID)
			return paid.ReservationID, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}

	amount, minor, err := normalizeAmount(req.Amount)
	if err != nil {
		return "", err
	}
	month, year, err := parseExpiry(req.ExpMonth, req.ExpYear)
	if err != nil {
		return "", err
	}

	a := &domain.PaymentAttempt{
		TempID:         uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		Method:         domain.AttemptMethodCard,
		RoomID:         req.RoomID,
		Amount:         amount,
		Currency:       s.currency,
		GuestEmail:     req.Contact.Email,
		Status:         domain.AttemptStatusCreated,
		CardBrand:      string(card.DetectType(req.Number)),
		CardLast4:      card.Last4(req.Number),
	}
	if err := s.attempts.Create(ctx, a); err != nil {
		return "", fmt.Errorf("save payment attempt failed: %w", err)
	}

	charge, err := s.provider.ChargeCard(ctx, CardCharge{
		Reference:      a.TempID,
		AmountMinor:    minor,
		Currency:       s.currency,
		Description:    describe(req.Reservation),
		HolderName:     req.HolderName,
		Email:          req.Contact.Email,
		Number:         req.Number,
		ExpMonth:       month,
		ExpYear:        year,
		CVC:            req.CVV,
		IdempotencyKey: chargeKey(a.TempID),
	})
	if err != nil {
		s.markFailed(ctx, a.TempID, err)
		return "", err
	}
	if err := s.attempts.AttachProviderRef(ctx, a.TempID, charge.ID); err != nil {
		s.loggerf("level=error msg=failed to attach charge to attempt temp_id=%s charge_id=%s err=%v", a.TempID, charge.ID, err)
	}
	if !charge.Succeeded {
		_ = s.attempts.MarkFailed(ctx, a.TempID, "charge status "+charge.Status)
		s.loggerf("level=info msg=card charge not completed temp_id=%s status=%s brand=%s last4=%s", a.TempID, charge.Status, a.CardBrand, a.CardLast4)
		return "", nil
	}
	return s.capture(ctx, a, charge.ID, domain.AttemptMethodCard, req.Contact, req.Reservation, req.RoomID)
}

// Attempt returns the ledger row for a temp id.
func (s *Service) Attempt(ctx context.Context, tempID string) (*domain.PaymentAttempt, error) {
	a, err := s.attempts.GetByTempID(ctx, tempID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAttempt
		}
		return nil, err
	}
	return a, nil
}

// capture marks the attempt paid and writes the reservation to the CRM.
func (s *Service) capture(ctx context.Context, a *domain.PaymentAttempt, providerRef string, method domain.PaymentAttemptMethod, contact wizard.Contact, reservation wizard.Reservation, roomID string) (string, error) {
	changed, err := s.attempts.MarkPaidIdempotent(ctx, a.TempID, providerRef, s.now().UTC())
	if err != nil {
		return "", err
	}
	if !changed {
		latest, err := s.attempts.GetByTempID(ctx, a.TempID)
		if err == nil && latest.ReservationID != "" {
			return latest.ReservationID, nil
		}
	}

	reservation.PaymentStatus = wizard.PaymentConfirmed
	id, err := s.reservations.CreateReservation(ctx, crm.ReservationInput{
		Contact:          contact,
		Reservation:      reservation,
		RoomID:           roomID,
		PaymentMethod:    string(method),
		PaymentReference: providerRef,
		AmountPaid:       reservation.TotalCost,
	})
	if err != nil {
		s.loggerf("level=error msg=payment captured but reservation not recorded temp_id=%s provider_ref=%s err=%v", a.TempID, providerRef, err)
		return "", fmt.Errorf("payment captured but reservation was not recorded: %w", err)
	}
	if err := s.attempts.SetReservationID(ctx, a.TempID, id); err != nil {
		s.loggerf("level=error msg=failed to link reservation to attempt temp_id=%s reservation_id=%s err=%v", a.TempID, id, err)
	}
	s.loggerf("level=info msg=reservation recorded temp_id=%s reservation_id=%s method=%s", a.TempID, id, method)
	return id, nil
}

func (s *Service) markFailed(ctx context.Context, tempID string, cause error) {
	if err := s.attempts.MarkFailed(ctx, tempID, cause.Error()); err != nil {
		s.loggerf("level=error msg=failed to mark attempt failed temp_id=%s err=%v", tempID, err)
	}
	s.loggerf("level=error msg=payment provider call failed temp_id=%s err=%v", tempID, cause)
}

func describe(r wizard.Reservation) string {
	if r.RoomType != "" {
		return "Hotel reservation - " + r.RoomType
	}
	return "Hotel reservation"
}

// withCheckoutToken adds the token parameter the provider fills in on return.
// chargeKey is the provider idempotency key of one charge attempt. The draft
// fingerprint stays on the ledger row to recognize an already paid draft; a
// retry after a decline is a new attempt and gets a new key.
func chargeKey(tempID string) string {
	return "charge-" + tempID
}

func withCheckoutToken(successURL string) string {
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "token=" + checkoutTokenPlaceholder
}

// normalizeAmount returns the amount as a two-decimal string and in minor
// units.
func normalizeAmount(v float64) (string, int64, error) {
	amount := strconv.FormatFloat(v, 'f', 2, 64)
	r, ok := new(big.Rat).SetString(amount)
	if !ok || r.Sign() <= 0 {
		return "", 0, ErrInvalidAmount
	}
	minor := new(big.Rat).Mul(r, big.NewRat(100, 1))
	if !minor.IsInt() {
		return "", 0, ErrInvalidAmount
	}
	return amount, minor.Num().Int64(), nil
}

func minorToDecimal(minor int64) string {
	return new(big.Rat).SetFrac64(minor, 100).FloatString(2)
}

func amountEqual(a, b string) bool {
	ar, ok := new(big.Rat).SetString(strings.TrimSpace(a))
	if !ok {
		return false
	}
	br, ok := new(big.Rat).SetString(strings.TrimSpace(b))
	if !ok {
		return false
	}
	return ar.Cmp(br) == 0
}

func parseExpiry(month, year string) (int64, int64, error) {
	m, err := strconv.ParseInt(strings.TrimSpace(month), 10, 64)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, &ProviderError{Code: "invalid_expiry_month", Message: "Month must be between 01 and 12"}
	}
	y, err := strconv.ParseInt(strings.TrimSpace(year), 10, 64)
	if err != nil || y < 2000 {
		return 0, 0, &ProviderError{Code: "invalid_expiry_year", Message: "Invalid expiration year"}
	}
	return m, y, nil
}

var (
	_ wizard.RedirectPayments = (*Service)(nil)
	_ wizard.CardPayments     = (*Service)(nil)
)
