package wizard

import (
	"errors"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrWrongStep          = errors.New("operation not available at the current step")
	ErrTerminal           = errors.New("reservation already completed")
	ErrPaymentInFlight    = errors.New("a payment for this reservation is already being processed")
	ErrWrongPaymentMethod = errors.New("operation does not match the selected payment method")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrUnknownField       = errors.New("unknown field")
	ErrSuperseded         = errors.New("result superseded by a newer request")
)

// ValidationError is a user-correctable failure. It blocks a transition but
// never tears the wizard down.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// CollaboratorError wraps a failed remote call with the best message that
// could be extracted from it.
type CollaboratorError struct {
	Op      string
	Message string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// userMessager is implemented by collaborator errors that carry a message
// meant for the guest (CRM and payment provider payloads).
type userMessager interface {
	UserMessage() string
}

func collaboratorError(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Message: messageOf(err), Err: err}
}

func messageOf(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return err.Error()
}

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient message for the guest. The zero value means there is
// nothing to show.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

func (n Notice) IsZero() bool { return n.Kind == "" && n.Message == "" }

func info(msg string) Notice    { return Notice{Kind: NoticeInfo, Message: msg} }
func success(msg string) Notice { return Notice{Kind: NoticeSuccess, Message: msg} }
