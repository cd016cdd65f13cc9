package device

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	uaChromeMac    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaEdgeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaSafariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaSafariIPad   = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

func TestParseEmptyUserAgent(t *testing.T) {
	info := Parse("")

	assert.Equal(t, "Unknown Device", info.Name)
	assert.Equal(t, domain.DeviceDesktop, info.Type)
	assert.Equal(t, "Unknown Browser", info.Browser)
	assert.Equal(t, "Unknown OS", info.OS)
}

func TestParseDesktopBrowsers(t *testing.T) {
	mac := Parse(uaChromeMac)
	assert.Equal(t, "MacBook", mac.Name)
	assert.Equal(t, domain.DeviceDesktop, mac.Type)
	assert.Contains(t, mac.Browser, "Chrome")

	win := Parse(uaEdgeWindows)
	assert.Equal(t, "Windows PC", win.Name)
	assert.Equal(t, domain.DeviceDesktop, win.Type)
}

func TestParseMobileAndTablet(t *testing.T) {
	phone := Parse(uaSafariIPhone)
	assert.Equal(t, domain.DeviceMobile, phone.Type)
	assert.Contains(t, phone.OS, "iOS")

	tablet := Parse(uaSafariIPad)
	assert.Equal(t, domain.DeviceTablet, tablet.Type)
}

func TestHTTPLocatorPrivateAddresses(t *testing.T) {
	locator := NewHTTPLocator("http://unused.invalid", zap.NewNop())

	for _, ip := range []string{"127.0.0.1", "::1", "192.168.1.10", "10.0.0.4"} {
		label, ok := locator.Locate(context.Background(), ip)
		assert.True(t, ok, ip)
		assert.Equal(t, "Local Network", label, ip)
	}
}

func TestHTTPLocatorResolvesCityCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"city":         "Berlin",
			"country_name": "Germany",
		})
	}))
	defer srv.Close()

	locator := NewHTTPLocator(srv.URL, zap.NewNop())
	label, ok := locator.Locate(context.Background(), "203.0.113.9")

	assert.True(t, ok)
	assert.Equal(t, "Berlin, Germany", label)
}

func TestHTTPLocatorDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	locator := NewHTTPLocator(srv.URL, zap.NewNop())
	_, ok := locator.Locate(context.Background(), "203.0.113.9")
	assert.False(t, ok)
}

func TestHTTPLocatorBoundedTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer srv.Close()

	locator := NewHTTPLocator(srv.URL, zap.NewNop())

	start := time.Now()
	_, ok := locator.Locate(context.Background(), "203.0.113.9")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 4*time.Second)
}
