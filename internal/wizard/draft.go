package wizard

import (
	"regexp"
	"strings"
	"time"

	"hotelwizard/internal/pkg/card"
)

// DraftKind tags which record a field change targets.
type DraftKind int

const (
	DraftContact DraftKind = iota + 1
	DraftReservation
	DraftCard
)

// FieldChange is a single edit to one of the drafts.
type FieldChange struct {
	Kind  DraftKind
	Field string
	Value string
}

type ContactField string

const (
	ContactFirstName ContactField = "FirstName"
	ContactLastName  ContactField = "LastName"
	ContactEmail     ContactField = "Email"
	ContactPhone     ContactField = "Phone"
)

var contactLabels = map[ContactField]string{
	ContactFirstName: "First Name",
	ContactLastName:  "Last Name",
	ContactEmail:     "Email",
	ContactPhone:     "Phone",
}

var contactOrder = []ContactField{ContactFirstName, ContactLastName, ContactEmail, ContactPhone}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Contact struct {
	FirstName string `json:"FirstName,omitempty"`
	LastName  string `json:"LastName,omitempty"`
	Email     string `json:"Email,omitempty"`
	Phone     string `json:"Phone,omitempty"`
}

func (c Contact) get(f ContactField) string {
	switch f {
	case ContactFirstName:
		return c.FirstName
	case ContactLastName:
		return c.LastName
	case ContactEmail:
		return c.Email
	case ContactPhone:
		return c.Phone
	}
	return ""
}

// Merge sets a single field and leaves the others alone.
func (c *Contact) Merge(f ContactField, value string) error {
	switch f {
	case ContactFirstName:
		c.FirstName = value
	case ContactLastName:
		c.LastName = value
	case ContactEmail:
		c.Email = value
	case ContactPhone:
		c.Phone = value
	default:
		return ErrUnknownField
	}
	return nil
}

// fieldComplete is the per-field check that gates persistence.
func (c Contact) fieldComplete(f ContactField) bool {
	v := strings.TrimSpace(c.get(f))
	switch f {
	case ContactFirstName, ContactLastName:
		return len(v) > 1
	case ContactEmail:
		return strings.Contains(v, "@")
	case ContactPhone:
		return len(v) > 5
	}
	return false
}

// Complete reports whether every field passes its completeness check.
func (c Contact) Complete() bool {
	for _, f := range contactOrder {
		if !c.fieldComplete(f) {
			return false
		}
	}
	return true
}

// persistable keeps only the fields that pass their own check.
func (c Contact) persistable() Contact {
	var out Contact
	for _, f := range contactOrder {
		if c.fieldComplete(f) {
			_ = out.Merge(f, c.get(f))
		}
	}
	return out
}

// fieldMessage is the inline message shown next to a contact field while the
// guest types.
func (c Contact) fieldMessage(f ContactField) string {
	v := strings.TrimSpace(c.get(f))
	switch f {
	case ContactFirstName, ContactLastName:
		if v == "" {
			return contactLabels[f] + " is required"
		}
	case ContactEmail:
		if v != "" && !emailPattern.MatchString(v) {
			return "Please enter a valid email address"
		}
	case ContactPhone:
		if v != "" && len(v) <= 5 {
			return "Please enter a valid phone number"
		}
	}
	return ""
}

// validate is the submit-time check of the reservation form.
func (c Contact) validate() error {
	var missing []string
	for _, f := range contactOrder {
		if strings.TrimSpace(c.get(f)) == "" {
			missing = append(missing, contactLabels[f])
		}
	}
	if len(missing) > 0 {
		return invalid("contact", "Missing required contact information: "+strings.Join(missing, ", "))
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		return invalid(string(ContactEmail), "Please enter a valid email address")
	}
	if len(strings.TrimSpace(c.Phone)) <= 5 {
		return invalid(string(ContactPhone), "Please enter a valid phone number")
	}
	return nil
}

type ReservationField string

const (
	ReservationSpecialRequests ReservationField = "Special_Requests"
)

// Reservation is the draft of the CRM reservation record. Only the special
// requests are typed by the guest; the rest is stamped by the wizard.
type Reservation struct {
	CheckIn         string        `json:"checkIn,omitempty"`
	CheckOut        string        `json:"checkOut,omitempty"`
	RoomType        string        `json:"roomType,omitempty"`
	SpecialRequests string        `json:"specialRequests,omitempty"`
	TotalCost       float64       `json:"totalCost,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus,omitempty"`
}

func (r *Reservation) Merge(f ReservationField, value string) error {
	switch f {
	case ReservationSpecialRequests:
		r.SpecialRequests = value
	default:
		return ErrUnknownField
	}
	return nil
}

func newReservation() Reservation {
	return Reservation{PaymentStatus: PaymentPending}
}

// CardDraft holds the in-form card fields as displayed. Month and year are
// derived from the expiry.
type CardDraft struct {
	HolderName string    `json:"cardName"`
	Number     string    `json:"cardNumber"`
	Expiry     string    `json:"cardExpiry"`
	ExpMonth   string    `json:"expMonth"`
	ExpYear    string    `json:"expYear"`
	CVV        string    `json:"-"`
	Type       card.Type `json:"cardType"`
}

// Merge formats the value for its field before storing it.
func (d *CardDraft) Merge(f card.Field, value string, now time.Time) error {
	switch f {
	case card.FieldName:
		d.HolderName = value
	case card.FieldNumber:
		d.Number = card.FormatNumber(value)
		d.Type = card.DetectType(d.Number)
	case card.FieldExpiry:
		d.Expiry = card.FormatExpiry(value)
		d.ExpMonth, d.ExpYear, _ = card.ParseExpiry(d.Expiry, now)
	case card.FieldCVV:
		d.CVV = card.FormatCVV(value)
		if len(d.CVV) > 4 {
			d.CVV = d.CVV[:4]
		}
	default:
		return ErrUnknownField
	}
	return nil
}

func (d CardDraft) fields() card.Fields {
	return card.Fields{HolderName: d.HolderName, Number: d.Number, Expiry: d.Expiry, CVV: d.CVV}
}

// missing lists the labels of every empty field the processor needs.
func (d CardDraft) missing() []string {
	var out []string
	if strings.TrimSpace(d.HolderName) == "" {
		out = append(out, "Cardholder Name")
	}
	if card.Digits(d.Number) == "" {
		out = append(out, "Card Number")
	}
	if d.ExpMonth == "" {
		out = append(out, "Expiration Month")
	}
	if d.ExpYear == "" {
		out = append(out, "Expiration Year")
	}
	if d.CVV == "" {
		out = append(out, "CVV")
	}
	return out
}

// wipeSecrets drops the PAN and CVV, keeping what the guest can reuse.
func (d *CardDraft) wipeSecrets() {
	d.Number = ""
	d.CVV = ""
}
