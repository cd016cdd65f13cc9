package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const localNetworkLabel = "Local Network"

// Locator resolves a network address to a geographic label. Lookups are
// best-effort enrichment: implementations must bound their latency and
// report ok=false rather than fail.
type Locator interface {
	Locate(ctx context.Context, ip string) (label string, ok bool)
}

// NoopLocator never resolves a location. Used in tests and deployments
// without outbound network access.
type NoopLocator struct{}

func (NoopLocator) Locate(context.Context, string) (string, bool) { return "", false }

// HTTPLocator queries an ipapi.co-compatible endpoint with a short bounded
// timeout. Any failure or timeout degrades to no label; it must never delay
// or fail session creation beyond its timeout.
type HTTPLocator struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPLocator(baseURL string, log *zap.Logger) *HTTPLocator {
	return &HTTPLocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 3 * time.Second},
		log:     log.Named("geo"),
	}
}

type geoResponse struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
}

func (l *HTTPLocator) Locate(ctx context.Context, ip string) (string, bool) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", false
	}
	if isPrivate(ip) {
		return localNetworkLabel, true
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", l.baseURL, ip), nil)
	if err != nil {
		return "", false
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.log.Warn("geolocation lookup failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		l.log.Warn("geolocation response malformed", zap.Error(err))
		return "", false
	}

	if body.City != "" && body.CountryName != "" {
		return body.City + ", " + body.CountryName, true
	}
	if body.CountryName != "" {
		return body.CountryName, true
	}
	return "", false
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
