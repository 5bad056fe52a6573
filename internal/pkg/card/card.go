// Package card formats and checks the shape of payment card fields typed into
// the in-form payment step. Nothing here talks to a processor; the provider
// remains the authority on whether a card can be charged.
package card

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Type string

const (
	TypeNone       Type = ""
	TypeVisa       Type = "Visa"
	TypeMastercard Type = "Mastercard"
	TypeAmex       Type = "American Express"
	TypeDiscover   Type = "Discover"
	TypeUnknown    Type = "Unknown"
)

type Field string

const (
	FieldName   Field = "cardName"
	FieldNumber Field = "cardNumber"
	FieldExpiry Field = "cardExpiry"
	FieldCVV    Field = "cardCVV"
)

const (
	MinDigits = 13
	MaxDigits = 19

	groupSize     = 4
	groupSep      = " "
	expiryLen     = len("MM/YY")
	minNameLength = 3
)

var expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)

// Fields is the raw card input as the guest typed it.
type Fields struct {
	HolderName string
	Number     string
	Expiry     string
	CVV        string
}

// Errors maps a field to its failure message. An empty map means valid.
type Errors map[Field]string

func (e Errors) OK() bool { return len(e) == 0 }

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[Field(k)])
	}
	return strings.Join(parts, "; ")
}

// Digits drops everything that is not an ASCII digit.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// FormatNumber groups the digits in fours, capped at MaxDigits digits.
// Applying it to its own output returns the same string.
func FormatNumber(raw string) string {
	d := Digits(raw)
	if len(d) > MaxDigits {
		d = d[:MaxDigits]
	}
	if d == "" {
		return ""
	}
	groups := make([]string, 0, (len(d)+groupSize-1)/groupSize)
	for i := 0; i < len(d); i += groupSize {
		end := i + groupSize
		if end > len(d) {
			end = len(d)
		}
		groups = append(groups, d[i:end])
	}
	return strings.Join(groups, groupSep)
}

// DetectType classifies a number by its leading digits.
func DetectType(number string) Type {
	d := Digits(number)
	if d == "" {
		return TypeNone
	}
	switch {
	case strings.HasPrefix(d, "4"):
		return TypeVisa
	case prefixInRange(d, 51, 55), prefixInRange(d, 22, 27):
		return TypeMastercard
	case strings.HasPrefix(d, "34"), strings.HasPrefix(d, "37"):
		return TypeAmex
	case strings.HasPrefix(d, "6011"), strings.HasPrefix(d, "65"):
		return TypeDiscover
	default:
		return TypeUnknown
	}
}

func prefixInRange(d string, lo, hi int) bool {
	if len(d) < 2 {
		return false
	}
	n, err := strconv.Atoi(d[:2])
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}

// FormatExpiry keeps digits only, inserts "/" after the month and caps the
// result at MM/YY.
func FormatExpiry(raw string) string {
	v := Digits(raw)
	if len(v) > 2 {
		v = v[:2] + "/" + v[2:]
	}
	if len(v) > expiryLen {
		v = v[:expiryLen]
	}
	return v
}

// ParseExpiry splits a valid MM/YY value into the two-digit month and the
// four-digit year, taking the century from now.
func ParseExpiry(expiry string, now time.Time) (month, year string, ok bool) {
	if ValidateExpiry(expiry) != "" {
		return "", "", false
	}
	century := strconv.Itoa(now.Year())[:2]
	return expiry[:2], century + expiry[3:], true
}

// FormatCVV keeps digits only.
func FormatCVV(raw string) string {
	return Digits(raw)
}

func ValidateNumber(number string) string {
	v := strings.Join(strings.Fields(number), "")
	if len(v) < MinDigits || len(v) > MaxDigits {
		return "Card number must be between 13 and 19 digits"
	}
	if Digits(v) != v {
		return "Card number must contain only digits"
	}
	if !Luhn(v) {
		return "Card number is invalid"
	}
	return ""
}

func ValidateName(name string) string {
	v := strings.TrimSpace(name)
	if v == "" {
		return "Please enter the cardholder name"
	}
	if utf8.RuneCountInString(v) < minNameLength {
		return "Name is too short"
	}
	return ""
}

func ValidateExpiry(expiry string) string {
	if !expiryPattern.MatchString(expiry) {
		return "Expiry date must be in MM/YY format"
	}
	month, _ := strconv.Atoi(expiry[:2])
	if month < 1 || month > 12 {
		return "Month must be between 01 and 12"
	}
	return ""
}

func ValidateCVV(cvv string) string {
	if cvv == "" || Digits(cvv) != cvv {
		return "CVV must contain only digits"
	}
	if len(cvv) < 3 || len(cvv) > 4 {
		return "CVV must be 3 or 4 digits"
	}
	return ""
}

// Validate runs every field check and collects the failures.
func Validate(f Fields) Errors {
	errs := Errors{}
	if msg := ValidateName(f.HolderName); msg != "" {
		errs[FieldName] = msg
	}
	if msg := ValidateNumber(f.Number); msg != "" {
		errs[FieldNumber] = msg
	}
	if msg := ValidateExpiry(f.Expiry); msg != "" {
		errs[FieldExpiry] = msg
	}
	if msg := ValidateCVV(f.CVV); msg != "" {
		errs[FieldCVV] = msg
	}
	return errs
}

// Luhn reports whether a digit string passes the mod-10 checksum.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// Last4 returns the trailing four digits, or "" for shorter input.
func Last4(number string) string {
	d := Digits(number)
	if len(d) < 4 {
		return ""
	}
	return d[len(d)-4:]
}

// Mask hides everything but the last four digits.
func Mask(number string) string {
	last := Last4(number)
	if last == "" {
		return ""
	}
	return "**** " + last
}
