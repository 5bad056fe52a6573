package domain

import "time"

type PaymentAttemptStatus string

const (
	AttemptStatusCreated PaymentAttemptStatus = "created"
	AttemptStatusPending PaymentAttemptStatus = "pending"
	AttemptStatusPaid    PaymentAttemptStatus = "paid"
	AttemptStatusFailed  PaymentAttemptStatus = "failed"
)

type PaymentAttemptMethod string

const (
	AttemptMethodRedirect PaymentAttemptMethod = "external_redirect"
	AttemptMethodCard     PaymentAttemptMethod = "card"
)

// PaymentAttempt is one try at paying for a reservation draft. Card data is
// limited to brand and last four digits.
type PaymentAttempt struct {
	ID             int64                `gorm:"primaryKey" json:"id"`
	TempID         string               `gorm:"type:varchar(64);uniqueIndex;not null" json:"temp_id"`
	IdempotencyKey string               `gorm:"type:varchar(128);index" json:"idempotency_key"`
	Method         PaymentAttemptMethod `gorm:"type:varchar(20);not null" json:"method"`
	RoomID         string               `gorm:"type:varchar(64);index" json:"room_id"`
	Amount         string               `gorm:"type:varchar(32);not null" json:"amount"`
	Currency       string               `gorm:"type:varchar(8);not null" json:"currency"`
	GuestEmail     string               `gorm:"type:varchar(255)" json:"guest_email"`
	Status         PaymentAttemptStatus `gorm:"type:varchar(20);default:'created';index" json:"status"`
	ProviderRef    string               `gorm:"type:varchar(255);index" json:"provider_ref"`
	CardBrand      string               `gorm:"type:varchar(32)" json:"card_brand"`
	CardLast4      string               `gorm:"type:varchar(4)" json:"card_last4"`
	ReservationID  string               `gorm:"type:varchar(64)" json:"reservation_id"`
	FailureReason  string               `gorm:"type:text" json:"failure_reason"`
	PaidAt         *time.Time           `json:"paid_at"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (PaymentAttempt) TableName() string { return "payment_attempts" }
