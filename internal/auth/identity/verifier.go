// Package identity is the boundary to the external federated identity
// provider. The core never inspects provider tokens itself.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/config"
	"go.uber.org/zap"
)

const verifyTimeout = 5 * time.Second

// HTTPVerifier posts the provider token to a verification endpoint and
// returns the verified subject.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

func NewHTTPVerifier(cfg config.Config, log *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: cfg.IdentityVerify,
		client:   &http.Client{Timeout: verifyTimeout},
		log:      log.Named("identity"),
	}
}

var _ domain.IdentityVerifier = (*HTTPVerifier)(nil)

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	SubjectID   string `json:"subjectId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Error       string `json:"error"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, identityToken string) (*domain.Identity, error) {
	if identityToken == "" {
		return nil, domain.ErrIdentityMalformed
	}

	body, err := json.Marshal(verifyRequest{Token: identityToken})
	if err != nil {
		return nil, fmt.Errorf("identity: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: verify call: %w", err)
	}
	defer resp.Body.Close()

	var payload verifyResponse
	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, domain.ErrIdentityMalformed
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		// body is advisory here, a broken one still means rejection
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "expired" {
			return nil, domain.ErrIdentityExpired
		}
		return nil, domain.ErrIdentityMalformed
	default:
		v.log.Warn("identity verification endpoint failed",
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("identity: verify endpoint returned %d", resp.StatusCode)
	}

	if payload.SubjectID == "" || payload.Email == "" {
		return nil, domain.ErrIdentityMalformed
	}

	return &domain.Identity{
		SubjectID:   payload.SubjectID,
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		AvatarURL:   payload.AvatarURL,
	}, nil
}
