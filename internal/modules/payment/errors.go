package payment

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrReferenceMismatch = errors.New("checkout does not belong to this draft")
	ErrUnknownAttempt    = errors.New("payment attempt not found")
	ErrNotConfigured     = errors.New("payment provider is not configured")
)

// ProviderError is a failure reported by the payment provider. Message is
// safe to show to the guest.
type ProviderError struct {
	Code     string
	Message  string
	Declined bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return "payment provider: " + e.Code + ": " + e.Message
	}
	return "payment provider: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) UserMessage() string { return e.Message }
