package reservation

import "hotelwizard/internal/wizard"

type DatesRequest struct {
	CheckIn  string `json:"checkIn" binding:"omitempty,datetime=2006-01-02" example:"2025-06-01"`
	CheckOut string `json:"checkOut" binding:"omitempty,datetime=2006-01-02" example:"2025-06-03"`
}

// FilterRequest updates only the fields that are present.
type FilterRequest struct {
	Floor      *string   `json:"floor" example:"2"`
	RoomNumber *string   `json:"roomNumber" example:"20"`
	RoomType   *string   `json:"roomType" example:"Suite"`
	Features   *[]string `json:"features"`
}

type FieldRequest struct {
	Field string `json:"field" binding:"required" example:"FirstName"`
	Value string `json:"value" example:"Ana"`
}

type PaymentMethodRequest struct {
	Method string `json:"method" binding:"required,oneof=external_redirect card" example:"card"`
}

// WizardResponse is the body of every wizard call.
type WizardResponse struct {
	View        wizard.View    `json:"view"`
	Notice      *wizard.Notice `json:"notice,omitempty"`
	RedirectURL string         `json:"redirectUrl,omitempty"`
}

type RoomTypesResponse struct {
	Options []wizard.Option `json:"options"`
}

type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	Error   struct {
		Code    string      `json:"code" example:"VALIDATION_ERROR"`
		Message string      `json:"message" example:"Check-out date must be after check-in date"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}
