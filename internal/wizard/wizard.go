// Package wizard drives one guest through date selection, room selection,
// the reservation form and payment. A Wizard is owned by a single browser
// session; all methods are safe for concurrent use, and remote calls are made
// without holding the state lock.
package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hotelwizard/internal/pkg/card"
)

type Deps struct {
	Rooms     RoomFinder
	RoomTypes RoomTypeSource
	Redirect  RedirectPayments
	Cards     CardPayments
	URLs      ReturnURLBuilder
	// Cache is the session-scoped draft store. Optional.
	Cache  Store
	Logger *zap.Logger
	Now    func() time.Time
	// OnChange receives a snapshot after every state change. It is called
	// without the lock held.
	OnChange func(View)
}

type Wizard struct {
	mu sync.Mutex

	rooms     RoomFinder
	roomTypes RoomTypeSource
	redirect  RedirectPayments
	cards     CardPayments
	urls      ReturnURLBuilder
	cache     Store
	log       *zap.Logger
	now       func() time.Time
	onChange  func(View)

	mounted bool
	step    Step
	dates   DateRange

	catalog         []Room
	filter          Filter
	visible         []Room
	searched        bool
	searching       bool
	searchSeq       uint64
	roomTypeOptions []Option
	roomTypesLocal  bool

	selectedRoomID string
	contact        Contact
	contactErrors  map[ContactField]string
	reservation    Reservation

	method     PaymentMethod
	card       CardDraft
	cardErrors card.Errors
	paying     bool

	// tempReservationID is the latest checkout; issuedReturns holds every
	// checkout started since the last reset.
	tempReservationID string
	issuedReturns     map[string]struct{}
	consumedReturns   map[string]struct{}
	reservationID     string

	// generation changes on every reset; completions started under an older
	// generation are dropped.
	generation uint64
}

func New(deps Deps) *Wizard {
	w := &Wizard{
		rooms:     deps.Rooms,
		roomTypes: deps.RoomTypes,
		redirect:  deps.Redirect,
		cards:     deps.Cards,
		urls:      deps.URLs,
		cache:     deps.Cache,
		log:       deps.Logger,
		now:       deps.Now,
		onChange:  deps.OnChange,
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	w.resetLocked()
	w.roomTypeOptions = fallbackRoomTypes(nil)
	w.roomTypesLocal = true
	return w
}

// Mount restores persisted drafts and loads room type options concurrently.
// Only the first call does any work.
func (w *Wizard) Mount(ctx context.Context) error {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return nil
	}
	w.mounted = true
	w.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.restore(gctx)
		return nil
	})
	g.Go(func() error {
		w.loadRoomTypes(gctx)
		return nil
	})
	err := g.Wait()
	w.emit()
	return err
}

func (w *Wizard) loadRoomTypes(ctx context.Context) {
	if w.roomTypes == nil {
		return
	}
	types, err := w.roomTypes.FetchRoomTypeOptions(ctx)
	if err != nil {
		w.log.Warn("room type fetch failed, using local options", zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roomTypeOptions = RoomTypeOptions(types)
	w.roomTypesLocal = false
}

// Restore reloads persisted drafts from the cache, falling back to the cookie
// mirror bound to ctx. Unreadable entries are ignored.
func (w *Wizard) Restore(ctx context.Context) {
	w.restore(ctx)
	w.emit()
}

func (w *Wizard) restore(ctx context.Context) {
	p, ok := readDrafts(ctx, w.stores(ctx))
	if !ok {
		w.log.Debug("no persisted drafts")
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range contactOrder {
		if v := p.contact.get(f); v != "" {
			_ = w.contact.Merge(f, v)
		}
	}
	if p.reservation.SpecialRequests != "" {
		w.reservation.SpecialRequests = p.reservation.SpecialRequests
	}
	w.refreshContactErrors()
}

// Clear removes every persisted draft entry.
func (w *Wizard) Clear(ctx context.Context) {
	if err := clearDrafts(ctx, w.stores(ctx)); err != nil {
		w.log.Debug("clear persisted drafts", zap.Error(err))
	}
}

func (w *Wizard) persist(ctx context.Context, p persistedDrafts) {
	if p.empty() {
		return
	}
	if err := writeDrafts(ctx, w.stores(ctx), p); err != nil {
		w.log.Debug("persist drafts", zap.Error(err))
	}
}

func (w *Wizard) persistableLocked() persistedDrafts {
	return persistedDrafts{
		contact:     w.contact.persistable(),
		reservation: persistedReservation{SpecialRequests: w.reservation.SpecialRequests},
	}
}

func (w *Wizard) stores(ctx context.Context) []Store {
	out := make([]Store, 0, 2)
	if w.cache != nil {
		out = append(out, w.cache)
	}
	if s := cookieStoreFrom(ctx); s != nil {
		out = append(out, s)
	}
	return out
}

type cookieStoreKey struct{}

// WithCookieStore binds a request-scoped mirror store to ctx. The wizard
// writes drafts to it next to the cache and reads it when the cache is empty.
func WithCookieStore(ctx context.Context, s Store) context.Context {
	return context.WithValue(ctx, cookieStoreKey{}, s)
}

func cookieStoreFrom(ctx context.Context) Store {
	s, _ := ctx.Value(cookieStoreKey{}).(Store)
	return s
}

func (w *Wizard) emit() {
	if w.onChange == nil {
		return
	}
	w.onChange(w.Snapshot())
}

func (w *Wizard) today() time.Time {
	return dateOnly(w.now())
}

func (w *Wizard) terminal() bool {
	return w.reservationID != ""
}

// SetCheckIn sets or clears (empty value) the check-in date. A check-out that
// no longer falls after it is cleared.
func (w *Wizard) SetCheckIn(value string) error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.dateEditableLocked(); err != nil {
		return err
	}
	t, err := ParseDate(value)
	if err != nil {
		return invalid("checkIn", "Invalid check-in date")
	}
	w.dates.CheckIn = dateOnly(t)
	if !w.dates.CheckOut.IsZero() && !w.dates.CheckIn.IsZero() && !w.dates.CheckOut.After(w.dates.CheckIn) {
		w.dates.CheckOut = time.Time{}
	}
	w.recalcStayLocked()
	return nil
}

func (w *Wizard) SetCheckOut(value string) error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.dateEditableLocked(); err != nil {
		return err
	}
	t, err := ParseDate(value)
	if err != nil {
		return invalid("checkOut", "Invalid check-out date")
	}
	w.dates.CheckOut = dateOnly(t)
	w.recalcStayLocked()
	return nil
}

// SetDates applies check-in first, then check-out.
func (w *Wizard) SetDates(checkIn, checkOut string) error {
	if err := w.SetCheckIn(checkIn); err != nil {
		return err
	}
	return w.SetCheckOut(checkOut)
}

func (w *Wizard) dateEditableLocked() error {
	if w.terminal() {
		return ErrTerminal
	}
	if w.step != StepDateSelection {
		return ErrWrongStep
	}
	return nil
}

func (w *Wizard) recalcStayLocked() {
	room, ok := findRoom(w.catalog, w.selectedRoomID)
	if !ok {
		w.reservation.TotalCost = 0
		return
	}
	w.reservation.TotalCost = room.PricePerNight * float64(w.dates.Nights())
}

// SelectRoom picks a room from the catalog and moves on to the form.
func (w *Wizard) SelectRoom(id string) error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal() {
		return ErrTerminal
	}
	if w.step != StepRoomSelection {
		return ErrWrongStep
	}
	room, ok := findRoom(w.catalog, id)
	if !ok {
		return invalid("room", "Could not find selected room. Please try again.")
	}
	w.selectedRoomID = room.ID
	w.reservation.RoomType = room.Type
	w.recalcStayLocked()
	return w.advanceLocked()
}

// Advance moves one step forward once the current step's check passes.
// Leaving the reservation form goes through ProceedToPayment, so the
// reservation is stamped and the drafts persisted the same way.
func (w *Wizard) Advance(ctx context.Context) error {
	w.mu.Lock()
	if w.step == StepReservationForm && !w.terminal() {
		w.mu.Unlock()
		return w.ProceedToPayment(ctx)
	}
	defer w.emit()
	defer w.mu.Unlock()
	return w.advanceLocked()
}

func (w *Wizard) advanceLocked() error {
	if w.terminal() {
		return ErrTerminal
	}
	next, ok := w.step.next()
	if !ok {
		return ErrWrongStep
	}
	if err := w.stepCompleteLocked(w.step); err != nil {
		return err
	}
	w.step = next
	return nil
}

func (w *Wizard) stepCompleteLocked(s Step) error {
	switch s {
	case StepDateSelection:
		return w.dates.Validate(w.today())
	case StepRoomSelection:
		if _, ok := findRoom(w.catalog, w.selectedRoomID); !ok {
			return invalid("room", "Please select a room")
		}
		return nil
	case StepReservationForm:
		return w.validateFormLocked()
	}
	return nil
}

func (w *Wizard) validateFormLocked() error {
	if err := w.contact.validate(); err != nil {
		return err
	}
	if _, ok := findRoom(w.catalog, w.selectedRoomID); !ok {
		return invalid("room", "Room selection information is missing. Please go back and select a room.")
	}
	return nil
}

// Retreat moves one step back. Drafts are kept.
func (w *Wizard) Retreat() error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal() {
		return ErrTerminal
	}
	prev, ok := w.step.prev()
	if !ok {
		return ErrWrongStep
	}
	w.step = prev
	if w.step == StepRoomSelection {
		w.visible = ApplyFilter(w.catalog, w.filter)
	}
	return nil
}

// jumpToPaymentLocked is the only non-linear transition. Callers take it
// after a valid reservation form or a confirmed payment.
func (w *Wizard) jumpToPaymentLocked() {
	w.step = StepPayment
}

// ProceedToPayment validates the reservation form, stamps the reservation
// draft and persists the drafts before switching to payment.
func (w *Wizard) ProceedToPayment(ctx context.Context) error {
	defer w.emit()
	w.mu.Lock()
	if w.terminal() {
		w.mu.Unlock()
		return ErrTerminal
	}
	if w.step != StepReservationForm {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if err := w.validateFormLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.stampReservationLocked()
	w.jumpToPaymentLocked()
	p := w.persistableLocked()
	w.mu.Unlock()

	w.persist(ctx, p)
	return nil
}

func (w *Wizard) stampReservationLocked() {
	if w.dates.Complete() {
		w.reservation.CheckIn = isoTimestamp(w.dates.CheckIn)
		w.reservation.CheckOut = isoTimestamp(w.dates.CheckOut)
	}
	if room, ok := findRoom(w.catalog, w.selectedRoomID); ok {
		w.reservation.RoomType = room.Type
	}
	w.recalcStayLocked()
}

// Reset returns the wizard to a fresh date selection and clears persisted
// drafts. It is the only way out of the completed state.
func (w *Wizard) Reset(ctx context.Context) {
	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()
	w.Clear(ctx)
	w.emit()
}

// Cancel resets and tells the guest the process was abandoned.
func (w *Wizard) Cancel(ctx context.Context) Notice {
	w.Reset(ctx)
	return info("Reservation process canceled")
}

func (w *Wizard) resetLocked() {
	w.generation++
	w.step = StepDateSelection
	w.dates = DateRange{}
	w.catalog = nil
	w.filter = Filter{}
	w.visible = nil
	w.searched = false
	w.searching = false
	w.selectedRoomID = ""
	w.contact = Contact{}
	w.contactErrors = map[ContactField]string{}
	w.reservation = newReservation()
	w.method = PaymentInFormCard
	w.card = CardDraft{}
	w.cardErrors = nil
	w.paying = false
	w.tempReservationID = ""
	w.issuedReturns = map[string]struct{}{}
	w.consumedReturns = map[string]struct{}{}
	w.reservationID = ""
	if w.roomTypesLocal {
		w.roomTypeOptions = fallbackRoomTypes(nil)
	}
}

// MergeField applies a change to the draft its kind names.
func (w *Wizard) MergeField(ctx context.Context, change FieldChange) error {
	switch change.Kind {
	case DraftContact:
		return w.MergeContactField(ctx, ContactField(change.Field), change.Value)
	case DraftReservation:
		return w.MergeReservationField(ctx, ReservationField(change.Field), change.Value)
	case DraftCard:
		return w.MergeCardField(card.Field(change.Field), change.Value)
	}
	return ErrUnknownField
}

func (w *Wizard) MergeContactField(ctx context.Context, field ContactField, value string) error {
	defer w.emit()
	w.mu.Lock()
	if w.terminal() {
		w.mu.Unlock()
		return ErrTerminal
	}
	if err := w.contact.Merge(field, value); err != nil {
		w.mu.Unlock()
		return err
	}
	if msg := w.contact.fieldMessage(field); msg != "" {
		w.contactErrors[field] = msg
	} else {
		delete(w.contactErrors, field)
	}
	p := w.persistableLocked()
	w.mu.Unlock()

	w.persist(ctx, p)
	return nil
}

func (w *Wizard) refreshContactErrors() {
	w.contactErrors = map[ContactField]string{}
	for _, f := range contactOrder {
		if msg := w.contact.fieldMessage(f); msg != "" && strings.TrimSpace(w.contact.get(f)) != "" {
			w.contactErrors[f] = msg
		}
	}
}

func (w *Wizard) MergeReservationField(ctx context.Context, field ReservationField, value string) error {
	defer w.emit()
	w.mu.Lock()
	if w.terminal() {
		w.mu.Unlock()
		return ErrTerminal
	}
	if err := w.reservation.Merge(field, value); err != nil {
		w.mu.Unlock()
		return err
	}
	p := w.persistableLocked()
	w.mu.Unlock()

	w.persist(ctx, p)
	return nil
}

// MergeCardField formats and stores one card field. Card data is never
// persisted.
func (w *Wizard) MergeCardField(field card.Field, value string) error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal() {
		return ErrTerminal
	}
	if err := w.card.Merge(field, value, w.now()); err != nil {
		return err
	}
	if w.cardErrors != nil {
		delete(w.cardErrors, field)
	}
	return nil
}

func (w *Wizard) SetPaymentMethod(m PaymentMethod) error {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal() {
		return ErrTerminal
	}
	if !m.IsValid() {
		return invalid("paymentMethod", "Unknown payment method")
	}
	w.method = m
	return nil
}
