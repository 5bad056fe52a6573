package wizard

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"hotelwizard/internal/pkg/card"
)

// Values of the status query parameter on the provider return URL.
const (
	ReturnStatusSuccess = "success"
	ReturnStatusCancel  = "cancel"
)

// ReturnParams are the query parameters the provider redirect carries.
type ReturnParams struct {
	Status string
	Token  string
	TempID string
}

func (p ReturnParams) Empty() bool {
	return p.Status == "" && p.TempID == ""
}

// PayResult is the outcome of Pay. RedirectURL is set for the redirect
// method; the notice is set when the card path completed.
type PayResult struct {
	RedirectURL string
	Notice      Notice
}

// Pay starts the payment with the selected method.
func (w *Wizard) Pay(ctx context.Context) (PayResult, error) {
	w.mu.Lock()
	method := w.method
	w.mu.Unlock()

	if method == PaymentExternalRedirect {
		url, err := w.Initiate(ctx)
		return PayResult{RedirectURL: url}, err
	}
	n, err := w.SubmitCardPayment(ctx)
	return PayResult{Notice: n}, err
}

// checkPayableLocked runs the checks shared by both payment paths.
func (w *Wizard) checkPayableLocked(method PaymentMethod) (Room, error) {
	if w.terminal() {
		return Room{}, ErrTerminal
	}
	if w.step != StepPayment {
		return Room{}, ErrWrongStep
	}
	if w.method != method {
		return Room{}, ErrWrongPaymentMethod
	}
	if err := w.validateFormLocked(); err != nil {
		return Room{}, err
	}
	room, _ := findRoom(w.catalog, w.selectedRoomID)
	if w.paying {
		return Room{}, ErrPaymentInFlight
	}
	return room, nil
}

// Initiate asks the redirect provider for a checkout URL. The guest is
// expected to leave for that URL and come back through CompleteFromReturn.
func (w *Wizard) Initiate(ctx context.Context) (string, error) {
	defer w.emit()
	w.mu.Lock()
	room, err := w.checkPayableLocked(PaymentExternalRedirect)
	if err != nil {
		w.mu.Unlock()
		return "", err
	}
	w.stampReservationLocked()
	tempID := newTempID()
	successURL, cancelURL, err := w.urls.ReturnURLs(tempID)
	if err != nil {
		w.mu.Unlock()
		return "", collaboratorError("Failed to initiate payment", err)
	}
	w.tempReservationID = tempID
	w.issuedReturns[tempID] = struct{}{}
	req := InitiateRequest{
		Contact:     w.contact,
		Reservation: w.reservation,
		RoomID:      room.ID,
		Amount:      w.reservation.TotalCost,
		ReturnURL:   successURL,
		CancelURL:   cancelURL,
		TempID:      tempID,
	}
	req.IdempotencyKey = w.fingerprintLocked(room.ID, "")
	w.paying = true
	gen := w.generation
	p := w.persistableLocked()
	w.mu.Unlock()

	w.persist(ctx, p)
	url, err := w.redirect.InitiateExternalPayment(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return "", ErrSuperseded
	}
	w.paying = false
	if err != nil {
		w.log.Warn("payment initiation failed", zap.Error(err))
		return "", collaboratorError("Failed to initiate payment", err)
	}
	if strings.TrimSpace(url) == "" {
		return "", &CollaboratorError{Op: "Failed to initiate payment", Message: "No redirect URL received from payment provider"}
	}
	w.log.Info("payment initiated", zap.String("temp_id", tempID), zap.String("room_id", room.ID))
	return url, nil
}

// CompleteFromReturn handles the guest coming back from the provider. Any
// checkout started since the last reset is accepted, not only the latest
// one. Each temp id is processed at most once, so replaying the same URL
// never finalizes twice.
func (w *Wizard) CompleteFromReturn(ctx context.Context, p ReturnParams) (Notice, error) {
	if p.Empty() {
		return Notice{}, nil
	}
	defer w.emit()
	w.mu.Lock()
	if p.TempID == "" {
		w.mu.Unlock()
		return Notice{}, nil
	}
	if _, seen := w.consumedReturns[p.TempID]; seen {
		w.mu.Unlock()
		return Notice{}, nil
	}
	if _, open := w.issuedReturns[p.TempID]; !open || w.terminal() {
		w.consumedReturns[p.TempID] = struct{}{}
		w.mu.Unlock()
		w.log.Info("ignoring payment return for inactive draft", zap.String("temp_id", p.TempID))
		return info("This payment link is no longer active."), nil
	}
	// Left unconsumed so the return can be replayed once the other call ends.
	if w.paying && p.Status == ReturnStatusSuccess {
		w.mu.Unlock()
		return Notice{}, ErrPaymentInFlight
	}
	w.consumedReturns[p.TempID] = struct{}{}

	switch p.Status {
	case ReturnStatusCancel:
		w.mu.Unlock()
		return info("Payment canceled. Please try again or select a different payment method."), nil
	case ReturnStatusSuccess:
	default:
		w.mu.Unlock()
		return Notice{}, nil
	}

	if p.Token == "" {
		w.mu.Unlock()
		return info("Payment could not be confirmed."), nil
	}
	room, ok := findRoom(w.catalog, w.selectedRoomID)
	if !ok {
		w.mu.Unlock()
		return Notice{}, invalid("room", "Payment processing failed: missing reservation data")
	}
	req := FinalizeRequest{
		Contact:     w.contact,
		Reservation: w.reservation,
		RoomID:      room.ID,
		Token:       p.Token,
		TempID:      p.TempID,
	}
	w.paying = true
	gen := w.generation
	w.mu.Unlock()

	id, err := w.redirect.FinalizeExternalPayment(ctx, req)

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return Notice{}, ErrSuperseded
	}
	w.paying = false
	if err != nil {
		w.mu.Unlock()
		w.log.Warn("payment finalization failed", zap.Error(err))
		return Notice{}, collaboratorError("Failed to process payment", err)
	}
	if id == "" {
		w.mu.Unlock()
		return info("Payment was canceled."), nil
	}
	w.completeLocked(id)
	w.mu.Unlock()

	w.Clear(ctx)
	w.log.Info("reservation confirmed", zap.String("reservation_id", id), zap.String("method", string(PaymentExternalRedirect)))
	return success("Payment successful! Your reservation is confirmed."), nil
}

// SubmitCardPayment validates the card fields and charges the card. On any
// failure the card number and CVV are wiped; the rest of the form stays.
func (w *Wizard) SubmitCardPayment(ctx context.Context) (Notice, error) {
	defer w.emit()
	w.mu.Lock()
	room, err := w.checkPayableLocked(PaymentInFormCard)
	if err != nil {
		w.mu.Unlock()
		return Notice{}, err
	}
	if missing := w.card.missing(); len(missing) > 0 {
		w.mu.Unlock()
		return Notice{}, invalid("card", "Missing required fields: "+strings.Join(missing, ", "))
	}
	if errs := card.Validate(w.card.fields()); !errs.OK() {
		w.cardErrors = errs
		w.mu.Unlock()
		return Notice{}, errs
	}
	w.cardErrors = nil
	w.stampReservationLocked()
	req := CardPaymentRequest{
		Contact:     w.contact,
		Reservation: w.reservation,
		RoomID:      room.ID,
		HolderName:  strings.TrimSpace(w.card.HolderName),
		Number:      card.Digits(w.card.Number),
		ExpMonth:    w.card.ExpMonth,
		ExpYear:     w.card.ExpYear,
		CVV:         w.card.CVV,
		Amount:      w.reservation.TotalCost,
	}
	req.IdempotencyKey = w.fingerprintLocked(room.ID, req.Number+"|"+w.card.Expiry)
	brand, last4 := w.card.Type, card.Last4(req.Number)
	w.paying = true
	gen := w.generation
	w.mu.Unlock()

	id, err := w.cards.SubmitInFormCardPayment(ctx, req)
	req.Number, req.CVV = "", ""

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return Notice{}, ErrSuperseded
	}
	w.paying = false
	if err != nil || id == "" {
		w.card.wipeSecrets()
		w.mu.Unlock()
		if err != nil {
			w.log.Warn("card payment failed", zap.Error(err), zap.String("brand", string(brand)), zap.String("last4", last4))
			return Notice{}, collaboratorError("Failed to process card payment", err)
		}
		w.log.Info("card payment declined", zap.String("brand", string(brand)), zap.String("last4", last4))
		return Notice{}, ErrPaymentDeclined
	}
	w.completeLocked(id)
	w.mu.Unlock()

	w.Clear(ctx)
	w.log.Info("reservation confirmed", zap.String("reservation_id", id), zap.String("method", string(PaymentInFormCard)))
	return success("Payment successful! Your Reservation ID is " + id), nil
}

func (w *Wizard) completeLocked(id string) {
	w.reservationID = id
	w.reservation.PaymentStatus = PaymentConfirmed
	w.jumpToPaymentLocked()
	w.card = CardDraft{}
	w.cardErrors = nil
}

// fingerprintLocked hashes the draft into a stable idempotency key, so a
// draft that was already paid is recognized by the payment ledger.
func (w *Wizard) fingerprintLocked(roomID, cardPart string) string {
	parts := []string{
		w.contact.FirstName, w.contact.LastName, w.contact.Email, w.contact.Phone,
		w.reservation.CheckIn, w.reservation.CheckOut, w.reservation.RoomType, w.reservation.SpecialRequests,
		strconv.FormatFloat(w.reservation.TotalCost, 'f', 2, 64),
		roomID, string(w.method), cardPart,
	}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
