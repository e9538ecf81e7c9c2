// Package identity models the claims an external OAuth provider asserts
// about a user. Provider payloads are reduced to this fixed record before
// they reach the linking logic; nothing downstream ever inspects a raw
// provider profile.
package identity

import (
	"errors"
	"strings"
)

var (
	ErrNoEmail   = errors.New("provider supplied no email claim")
	ErrNoSubject = errors.New("provider supplied no subject id")
)

// External is a validated third-party identity assertion.
type External struct {
	Email     string
	SubjectID string
}

// Validate fails closed when the provider omitted a required claim.
func (e External) Validate() error {
	if strings.TrimSpace(e.Email) == "" {
		return ErrNoEmail
	}
	if strings.TrimSpace(e.SubjectID) == "" {
		return ErrNoSubject
	}
	return nil
}
