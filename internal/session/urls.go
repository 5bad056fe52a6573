package session

import (
	"fmt"
	"net/url"

	"hotelwizard/internal/wizard"
)

// Signer issues the state token tying a provider return to its session.
type Signer interface {
	GenerateToken(sessionID, tempID string) (string, error)
}

// ReturnURLs builds provider return URLs for one session. Both carry the
// status, the temp id and a signed state token.
type ReturnURLs struct {
	base      string
	signer    Signer
	sessionID string
}

func NewReturnURLs(base string, signer Signer, sessionID string) *ReturnURLs {
	return &ReturnURLs{base: base, signer: signer, sessionID: sessionID}
}

func (r *ReturnURLs) ReturnURLs(tempID string) (string, string, error) {
	u, err := url.Parse(r.base)
	if err != nil {
		return "", "", fmt.Errorf("parse return url: %w", err)
	}
	state, err := r.signer.GenerateToken(r.sessionID, tempID)
	if err != nil {
		return "", "", fmt.Errorf("sign return state: %w", err)
	}
	build := func(status string) string {
		cp := *u
		q := cp.Query()
		q.Set("status", status)
		q.Set("tempId", tempID)
		q.Set("state", state)
		cp.RawQuery = q.Encode()
		return cp.String()
	}
	return build(wizard.ReturnStatusSuccess), build(wizard.ReturnStatusCancel), nil
}

var _ wizard.ReturnURLBuilder = (*ReturnURLs)(nil)
