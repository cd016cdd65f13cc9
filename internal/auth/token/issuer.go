package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by an access token. The session id lets revocation
// checks find the backing session without a second lookup key.
type Claims struct {
	AccountID string      `json:"uid"`
	SessionID string      `json:"sid"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 access tokens. Token lifetime comes
// from the security policy and is always capped at the session lifetime.
type Issuer struct {
	secret []byte
	policy *config.SecurityPolicyHolder
	clock  clock.Clock
}

func NewIssuer(cfg config.Config, policy *config.SecurityPolicyHolder, clk clock.Clock) (*Issuer, error) {
	if cfg.AuthJWTSecret == "" {
		return nil, fmt.Errorf("token: signing secret is not configured")
	}
	return &Issuer{
		secret: []byte(cfg.AuthJWTSecret),
		policy: policy,
		clock:  clk,
	}, nil
}

func (i *Issuer) Mint(accountID, sessionID string, role domain.Role) (string, error) {
	now := i.clock.Now()
	ttl := time.Duration(i.policy.Get().TokenTTLDays) * 24 * time.Hour

	claims := Claims{
		AccountID: accountID,
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if claims.AccountID == "" || claims.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
