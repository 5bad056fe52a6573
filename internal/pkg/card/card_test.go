package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	cases := []struct {
		number string
		want   Type
	}{
		{"4111111111111111", TypeVisa},
		{"4111 1111 1111 1111", TypeVisa},
		{"5500000000000004", TypeMastercard},
		{"2221000000000009", TypeMastercard},
		{"341111111111111", TypeAmex},
		{"371449635398431", TypeAmex},
		{"6011111111111117", TypeDiscover},
		{"6500000000000002", TypeDiscover},
		{"9999", TypeUnknown},
		{"5", TypeUnknown},
		{"", TypeNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectType(tc.number), tc.number)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "4111 1111 1111 1111", FormatNumber("4111111111111111"))
	assert.Equal(t, "4111 1111 1", FormatNumber("4111-1111-1"))
	assert.Equal(t, "", FormatNumber("abc"))
	assert.Equal(t, "1234 5678 9012 3456 789", FormatNumber("12345678901234567890123"))
}

func TestFormatNumber_Idempotent(t *testing.T) {
	inputs := []string{"4111111111111111", "34 11 11 11 11 11 111", "6011-1111-1111-1117", "12", "12345678901234567890123"}
	for _, in := range inputs {
		once := FormatNumber(in)
		assert.Equal(t, once, FormatNumber(once), in)
	}
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "1", FormatExpiry("1"))
	assert.Equal(t, "12", FormatExpiry("12"))
	assert.Equal(t, "12/3", FormatExpiry("123"))
	assert.Equal(t, "12/34", FormatExpiry("1234"))
	assert.Equal(t, "12/34", FormatExpiry("12345"))
	assert.Equal(t, "12/34", FormatExpiry("12/34"))
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	month, year, ok := ParseExpiry("09/28", now)
	assert.True(t, ok)
	assert.Equal(t, "09", month)
	assert.Equal(t, "2028", year)

	_, _, ok = ParseExpiry("13/28", now)
	assert.False(t, ok)
	_, _, ok = ParseExpiry("0928", now)
	assert.False(t, ok)
}

func TestValidateNumber(t *testing.T) {
	assert.Empty(t, ValidateNumber("4111 1111 1111 1111"))
	assert.Empty(t, ValidateNumber("341111111111111"))
	assert.Equal(t, "Card number must be between 13 and 19 digits", ValidateNumber("4111"))
	assert.Equal(t, "Card number must contain only digits", ValidateNumber("4111-1111-1111-1111"))
	assert.Equal(t, "Card number is invalid", ValidateNumber("4111111111111112"))
}

func TestValidateName(t *testing.T) {
	assert.Empty(t, ValidateName("  Ana  "))
	assert.Equal(t, "Please enter the cardholder name", ValidateName("   "))
	assert.Equal(t, "Name is too short", ValidateName(" Al "))
}

func TestValidateExpiry(t *testing.T) {
	assert.Empty(t, ValidateExpiry("01/30"))
	assert.Equal(t, "Expiry date must be in MM/YY format", ValidateExpiry("1/30"))
	assert.Equal(t, "Month must be between 01 and 12", ValidateExpiry("00/30"))
	assert.Equal(t, "Month must be between 01 and 12", ValidateExpiry("13/30"))
}

func TestValidateCVV(t *testing.T) {
	assert.Empty(t, ValidateCVV("123"))
	assert.Empty(t, ValidateCVV("1234"))
	assert.Equal(t, "CVV must be 3 or 4 digits", ValidateCVV("12"))
	assert.Equal(t, "CVV must be 3 or 4 digits", ValidateCVV("12345"))
	assert.Equal(t, "CVV must contain only digits", ValidateCVV("12a"))
	assert.Equal(t, "CVV must contain only digits", ValidateCVV(""))
}

func TestValidate_AggregatesEveryField(t *testing.T) {
	errs := Validate(Fields{})
	assert.False(t, errs.OK())
	assert.Len(t, errs, 4)

	errs = Validate(Fields{HolderName: "Ana Cruz", Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "123"})
	assert.True(t, errs.OK())

	errs = Validate(Fields{HolderName: "Ana Cruz", Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "1"})
	assert.Equal(t, Errors{FieldCVV: "CVV must be 3 or 4 digits"}, errs)
	assert.Equal(t, "cardCVV: CVV must be 3 or 4 digits", errs.Error())
}

func TestMask(t *testing.T) {
	assert.Equal(t, "**** 1111", Mask("4111 1111 1111 1111"))
	assert.Equal(t, "1111", Last4("4111111111111111"))
	assert.Equal(t, "", Mask("41"))
}
