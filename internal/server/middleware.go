package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/ratelimit"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	contextAccountKey   = "principal_account"
	contextAccountIDKey = "principal_account_id"
	contextSessionIDKey = "principal_session_id"
	contextRoleKey      = "principal_role"

	touchTimeout = 5 * time.Second
)

// AuthRequired authenticates the bearer token, checks the backing session,
// and loads the account into the request context. Last-active tracking is
// fired asynchronously so it never adds latency or failure modes.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeAuthRequired, "authentication required"))
			return
		}

		claims, err := s.issuer.Verify(raw)
		if err != nil {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired token"))
			return
		}

		accountID, err := snowflake.ParseString(claims.AccountID)
		if err != nil {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired token"))
			return
		}

		sessionID, err := snowflake.ParseString(claims.SessionID)
		if err != nil {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired token"))
			return
		}
		if !s.sessions.Validate(c.Request.Context(), sessionID) {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeSessionInvalid, "session expired or revoked"))
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
			defer cancel()
			s.sessions.Touch(ctx, sessionID)
		}()

		account, err := s.accounts.FindByID(c.Request.Context(), accountID)
		if err != nil {
			AbortWithError(c, newAPIError(http.StatusUnauthorized, CodeAccountMissing, "account no longer exists"))
			return
		}
		if !account.Active {
			AbortWithError(c, newAPIError(http.StatusForbidden, CodeAccountInactive, "account is deactivated"))
			return
		}

		c.Set(contextAccountKey, account)
		c.Set(contextAccountIDKey, accountID)
		c.Set(contextSessionIDKey, sessionID)
		c.Set(contextRoleKey, account.Role)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Composes after AuthRequired.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return s.requireRole(func(r authdomain.Role) bool {
		return r == authdomain.RoleAdmin
	})
}

// RequireAuthor admits authors and admins.
func (s *Server) RequireAuthor() gin.HandlerFunc {
	return s.requireRole(func(r authdomain.Role) bool {
		return r == authdomain.RoleAuthor || r == authdomain.RoleAdmin
	})
}

func (s *Server) requireRole(allowed func(authdomain.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := currentRole(c)
		if !ok || !allowed(role) {
			AbortWithError(c, newAPIError(http.StatusForbidden, CodeAccessDenied, "access denied"))
			return
		}
		c.Next()
	}
}

// RateLimited throttles the action per authenticated account. A nil limiter
// admits everything.
func (s *Server) RateLimited(action ratelimit.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := currentAccountID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, retryAfter := s.limiter.Allow(c.Request.Context(), action, accountID.String())
		if !allowed {
			if retryAfter > 0 {
				c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			}
			AbortWithError(c, newAPIError(http.StatusTooManyRequests, CodeRateLimited, "too many requests, slow down"))
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentAccount(c *gin.Context) (*authdomain.Account, bool) {
	v, ok := c.Get(contextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*authdomain.Account)
	return account, ok
}

func currentAccountID(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(contextAccountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}

func currentSessionID(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(contextSessionIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}

func currentRole(c *gin.Context) (authdomain.Role, bool) {
	v, ok := c.Get(contextRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(authdomain.Role)
	return role, ok
}
