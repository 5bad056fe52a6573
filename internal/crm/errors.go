package crm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx CRM response. Message is the first message found in
// the payload, falling back to the status text.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("crm: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("crm: %d: %s", e.Status, e.Message)
}

// UserMessage is the text that may be shown to the guest.
func (e *APIError) UserMessage() string { return e.Message }

type errorItem struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// parseAPIError accepts {"message":..} and [{"message":..,"errorCode":..}].
func parseAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "["):
		var items []errorItem
		if json.Unmarshal(raw, &items) == nil {
			for _, it := range items {
				if it.Message != "" {
					e.Message, e.Code = it.Message, it.ErrorCode
					break
				}
			}
		}
	case strings.HasPrefix(trimmed, "{"):
		var item errorItem
		if json.Unmarshal(raw, &item) == nil {
			e.Message, e.Code = item.Message, item.ErrorCode
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = "Unknown error"
	}
	return e
}
