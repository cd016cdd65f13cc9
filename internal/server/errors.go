package server

import (
	"errors"
	"net/http"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes. Clients key on these; the human
// messages may change.
const (
	CodeInvalidCredentials = "AUTH_001"
	CodeAuthRequired       = "AUTH_002"
	CodeTokenInvalid       = "AUTH_003"
	CodeSessionInvalid     = "AUTH_004"
	CodeAccountMissing     = "AUTH_005"
	CodeAccountInactive    = "AUTH_006"
	CodeAccessDenied       = "AUTH_007"
	CodeIdentityRejected   = "AUTH_008"

	CodeAccountNotFound = "USER_001"
	CodeEmailTaken      = "USER_002"

	CodeNameInvalid  = "VALIDATION_001"
	CodeEmailInvalid = "VALIDATION_002"
	CodeRoleInvalid  = "VALIDATION_003"
	CodeBadRequest   = "VALIDATION_004"

	CodePasswordNotSet    = "PASSWORD_001"
	CodePasswordIncorrect = "PASSWORD_002"
	CodePasswordExists    = "PASSWORD_003"
	CodeFederatedOnly     = "PASSWORD_004"
	CodePasswordMismatch  = "PASSWORD_005"
	CodePasswordPolicy    = "PASSWORD_006"
	CodePasswordReuse     = "PASSWORD_007"

	CodeSessionNotFound  = "SESSION_001"
	CodeSessionForbidden = "SESSION_002"
	CodeSelfRevocation   = "SESSION_003"

	CodeNoFileUploaded = "UPLOAD_001"

	CodeRateLimited = "RATE_001"
	CodeInternal    = "INTERNAL_001"
)

// apiError carries an explicit status/code pair for failures born at the
// HTTP layer itself (binding, auth pipeline, upload checks).
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func newAPIError(status int, code, message string) error {
	return &apiError{status: status, code: code, message: message}
}

func invalidRequestError() error {
	return newAPIError(http.StatusBadRequest, CodeBadRequest, "invalid request body")
}

// ErrorHandlingMiddleware converts the last recorded error into the
// response envelope. Handlers never write error responses directly.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, code, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, Envelope{
			Success: false,
			Message: message,
			Code:    code,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (status int, code string, message string) {
	var api *apiError
	if errors.As(err, &api) {
		return api.status, api.code, api.message
	}

	var policyErr *domain.PolicyError
	if errors.As(err, &policyErr) {
		return http.StatusBadRequest, CodePasswordPolicy, policyErr.Error()
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		code := CodeBadRequest
		switch validationErr.Field {
		case "name":
			code = CodeNameInvalid
		case "email":
			code = CodeEmailInvalid
		}
		return http.StatusBadRequest, code, validationErr.Error()
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials"
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden, CodeAccountInactive, "account is deactivated"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, CodeAccountNotFound, "account not found"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, CodeEmailTaken, "email already in use"
	case errors.Is(err, domain.ErrRoleInvalid):
		return http.StatusBadRequest, CodeRoleInvalid, "invalid role"

	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound, "session not found"
	case errors.Is(err, domain.ErrSessionForbidden):
		return http.StatusForbidden, CodeSessionForbidden, "not allowed to revoke this session"
	case errors.Is(err, domain.ErrSelfRevocation):
		return http.StatusBadRequest, CodeSelfRevocation, "cannot revoke the current session, log out instead"

	case errors.Is(err, domain.ErrPasswordNotSet):
		return http.StatusForbidden, CodePasswordNotSet, "no password set, use add password instead"
	case errors.Is(err, domain.ErrPasswordIncorrect):
		return http.StatusUnauthorized, CodePasswordIncorrect, "current password is incorrect"
	case errors.Is(err, domain.ErrPasswordExists):
		return http.StatusBadRequest, CodePasswordExists, "password already set, use change password instead"
	case errors.Is(err, domain.ErrFederatedOnly):
		return http.StatusBadRequest, CodeFederatedOnly, "adding a password requires a linked federated identity"
	case errors.Is(err, domain.ErrPasswordMismatch):
		return http.StatusBadRequest, CodePasswordMismatch, "passwords do not match"
	case errors.Is(err, domain.ErrPasswordReuse):
		return http.StatusBadRequest, CodePasswordReuse, "new password must be different from the current password"

	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired token"
	case errors.Is(err, domain.ErrIdentityExpired), errors.Is(err, domain.ErrIdentityMalformed):
		return http.StatusUnauthorized, CodeIdentityRejected, "identity token was rejected"

	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

// classifyErrorForLog feeds the request logger so failures carry their
// mapped code without duplicating the mapping there.
func classifyErrorForLog(err error) (string, string) {
	status, code, _ := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", code
	}
	return "domain", code
}
