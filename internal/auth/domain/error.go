package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account inactive")
	ErrEmailTaken         = errors.New("email already in use")
	ErrRoleInvalid        = errors.New("invalid role")

	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionRevoked   = errors.New("session revoked")
	ErrSessionForbidden = errors.New("session belongs to another account")
	ErrSelfRevocation   = errors.New("cannot revoke the session in use")

	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")

	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordIncorrect = errors.New("current password incorrect")
	ErrPasswordReuse     = errors.New("new password must differ from the current one")
	ErrPasswordExists    = errors.New("password already set, use change instead")
	ErrPasswordNotSet    = errors.New("no password set, use add instead")
	ErrFederatedOnly     = errors.New("adding a password requires a linked federated identity")

	ErrIdentityMalformed = errors.New("identity token malformed")
	ErrIdentityExpired   = errors.New("identity token expired")
)

// PolicyError reports every password-policy violation at once so the caller
// can surface the full list in a single response.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// ValidationError reports a rejected request field, distinct from password
// policy failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
