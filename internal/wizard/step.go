package wizard

// Step is the position of the guest in the linear booking flow.
type Step int

const (
	StepDateSelection Step = iota + 1
	StepRoomSelection
	StepReservationForm
	StepPayment
)

func (s Step) String() string {
	switch s {
	case StepDateSelection:
		return "date_selection"
	case StepRoomSelection:
		return "room_selection"
	case StepReservationForm:
		return "reservation_form"
	case StepPayment:
		return "payment"
	default:
		return "unknown"
	}
}

func (s Step) IsValid() bool {
	return s >= StepDateSelection && s <= StepPayment
}

// Progress is the share of the flow completed, in percent.
func (s Step) Progress() int {
	if !s.IsValid() {
		return 0
	}
	return int(s) * 25
}

func (s Step) next() (Step, bool) {
	if s >= StepPayment {
		return s, false
	}
	return s + 1, true
}

func (s Step) prev() (Step, bool) {
	if s <= StepDateSelection {
		return s, false
	}
	return s - 1, true
}

type PaymentMethod string

const (
	PaymentExternalRedirect PaymentMethod = "external_redirect"
	PaymentInFormCard       PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentExternalRedirect || m == PaymentInFormCard
}

// ActionLabel is the caption of the button that starts the payment.
func (m PaymentMethod) ActionLabel() string {
	if m == PaymentExternalRedirect {
		return "Proceed to payment provider"
	}
	return "Process Payment"
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentConfirmed PaymentStatus = "Confirmed"
)
