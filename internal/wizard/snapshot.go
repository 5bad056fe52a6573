package wizard

import (
	"github.com/google/uuid"

	"hotelwizard/internal/pkg/card"
)

// RoomView is a catalog row with the figures for the current stay.
type RoomView struct {
	Room
	TotalRoomCost float64  `json:"totalRoomCost"`
	TotalDisplay  string   `json:"totalRoomCostDisplay"`
	PriceDisplay  string   `json:"pricePerNightDisplay"`
	FeaturesArray []string `json:"featuresArray"`
	Selected      bool     `json:"selected"`
}

// View is a read-only copy of the wizard state for rendering.
type View struct {
	Step              Step   `json:"step"`
	StepName          string `json:"stepName"`
	Progress          int    `json:"progress"`
	IsDateSelection   bool   `json:"isDateSelection"`
	IsRoomSelection   bool   `json:"isRoomSelection"`
	IsReservationForm bool   `json:"isReservationForm"`
	IsPayment         bool   `json:"isPayment"`

	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	MinCheckIn  string `json:"minCheckIn"`
	MinCheckOut string `json:"minCheckOut"`
	Nights      int    `json:"nights"`

	Rooms              []RoomView `json:"rooms"`
	CatalogSize        int        `json:"catalogSize"`
	Filter             Filter     `json:"filter"`
	FloorOptions       []Option   `json:"floorOptions"`
	RoomTypeOptions    []Option   `json:"roomTypeOptions"`
	FeatureOptions     []Option   `json:"featureOptions"`
	Searching          bool       `json:"searching"`
	HasRooms           bool       `json:"hasRooms"`
	NoRoomsAvailable   bool       `json:"noRoomsAvailable"`
	HasNoMatchingRooms bool       `json:"hasNoMatchingRooms"`
	SelectedRoom       *RoomView  `json:"selectedRoom,omitempty"`

	Contact          Contact                 `json:"contact"`
	ContactErrors    map[ContactField]string `json:"contactErrors,omitempty"`
	ContactComplete  bool                    `json:"contactComplete"`
	Reservation      Reservation             `json:"reservation"`
	TotalCostDisplay string                  `json:"totalCostDisplay"`

	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	PaymentActionLabel string        `json:"paymentActionLabel"`
	// Card.Number is masked to the last four digits.
	Card               CardDraft     `json:"card"`
	CardErrors         card.Errors   `json:"cardErrors,omitempty"`
	PaymentInFlight    bool          `json:"paymentInFlight"`

	ReservationID string `json:"reservationId,omitempty"`
	BookingNumber string `json:"bookingNumber,omitempty"`
	Completed     bool   `json:"completed"`
}

// Snapshot copies the current state into a View.
func (w *Wizard) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.today()
	nights := w.dates.Nights()
	v := View{
		Step:              w.step,
		StepName:          w.step.String(),
		Progress:          w.step.Progress(),
		IsDateSelection:   w.step == StepDateSelection,
		IsRoomSelection:   w.step == StepRoomSelection,
		IsReservationForm: w.step == StepReservationForm,
		IsPayment:         w.step == StepPayment,

		CheckIn:     formatDate(w.dates.CheckIn),
		CheckOut:    formatDate(w.dates.CheckOut),
		MinCheckIn:  formatDate(today),
		MinCheckOut: formatDate(w.dates.MinCheckOut(today)),
		Nights:      nights,

		CatalogSize:        len(w.catalog),
		Filter:             w.filter.clone(),
		FloorOptions:       FloorOptions(w.catalog),
		RoomTypeOptions:    append([]Option(nil), w.roomTypeOptions...),
		FeatureOptions:     FeatureOptions(),
		Searching:          w.searching,
		HasRooms:           len(w.visible) > 0,
		NoRoomsAvailable:   w.searched && len(w.catalog) == 0,
		HasNoMatchingRooms: len(w.catalog) > 0 && len(w.visible) == 0,

		Contact:          w.contact,
		ContactComplete:  w.contact.Complete(),
		Reservation:      w.reservation,
		TotalCostDisplay: FormatMoney(w.reservation.TotalCost),

		PaymentMethod:      w.method,
		PaymentActionLabel: w.method.ActionLabel(),
		Card:               w.card,
		PaymentInFlight:    w.paying,

		ReservationID: w.reservationID,
		Completed:     w.terminal(),
	}
	v.Card.Number = card.Mask(w.card.Number)
	v.Rooms = make([]RoomView, 0, len(w.visible))
	for _, r := range w.visible {
		v.Rooms = append(v.Rooms, w.roomView(r, nights))
	}
	if r, ok := findRoom(w.catalog, w.selectedRoomID); ok {
		rv := w.roomView(r, nights)
		v.SelectedRoom = &rv
	}
	if len(w.contactErrors) > 0 {
		v.ContactErrors = make(map[ContactField]string, len(w.contactErrors))
		for k, msg := range w.contactErrors {
			v.ContactErrors[k] = msg
		}
	}
	if len(w.cardErrors) > 0 {
		v.CardErrors = make(card.Errors, len(w.cardErrors))
		for k, msg := range w.cardErrors {
			v.CardErrors[k] = msg
		}
	}
	if w.reservationID != "" {
		v.BookingNumber = "RES-" + w.reservationID
	}
	return v
}

func (w *Wizard) roomView(r Room, nights int) RoomView {
	total := r.PricePerNight * float64(nights)
	return RoomView{
		Room:          r,
		TotalRoomCost: total,
		TotalDisplay:  FormatMoney(total),
		PriceDisplay:  FormatMoney(r.PricePerNight),
		FeaturesArray: r.FeatureList(),
		Selected:      r.ID == w.selectedRoomID,
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// TempReservationID is the correlation id of the last initiated redirect
// payment, or "".
func (w *Wizard) TempReservationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tempReservationID
}

func newTempID() string {
	return uuid.NewString()
}
