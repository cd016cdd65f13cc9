package password

import "strings"

const (
	minLength = 8
	maxLength = 128
)

// Violation codes are stable identifiers; the message may change.
const (
	ViolationRequired   = "PASSWORD_REQUIRED"
	ViolationTooShort   = "PASSWORD_TOO_SHORT"
	ViolationTooLong    = "PASSWORD_TOO_LONG"
	ViolationAllNumeric = "PASSWORD_ALL_NUMERIC"
	ViolationCommon     = "PASSWORD_TOO_COMMON"
)

var commonPasswords = []string{
	"password", "12345678", "qwerty", "admin123", "letmein",
	"welcome", "monkey", "1234567890", "password123",
}

// Violation describes a single failed policy rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result reports the outcome of a policy check.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Policy validates candidate passwords. The zero value applies the built-in
// rules; Extra adds deployment-specific deny-list entries.
type Policy struct {
	Extra []string
}

// Validate runs every rule and accumulates violations so the caller can
// report all failures at once. Empty input short-circuits with the single
// required violation.
func (p Policy) Validate(candidate string) Result {
	if candidate == "" {
		return Result{Violations: []Violation{{
			Code:    ViolationRequired,
			Message: "Password is required",
		}}}
	}

	var violations []Violation

	if len(candidate) < minLength {
		violations = append(violations, Violation{
			Code:    ViolationTooShort,
			Message: "Password must be at least 8 characters",
		})
	}
	if len(candidate) > maxLength {
		violations = append(violations, Violation{
			Code:    ViolationTooLong,
			Message: "Password must not exceed 128 characters",
		})
	}
	if isAllNumeric(candidate) {
		violations = append(violations, Violation{
			Code:    ViolationAllNumeric,
			Message: "Password cannot contain only numbers",
		})
	}
	if p.isCommon(candidate) {
		violations = append(violations, Violation{
			Code:    ViolationCommon,
			Message: "Password is too common. Please choose a stronger password",
		})
	}

	return Result{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}

func (p Policy) isCommon(candidate string) bool {
	lowered := strings.ToLower(candidate)
	for _, common := range commonPasswords {
		if lowered == common {
			return true
		}
	}
	for _, common := range p.Extra {
		if lowered == strings.ToLower(common) {
			return true
		}
	}
	return false
}

func isAllNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
