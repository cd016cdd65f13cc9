// Package device derives human-readable device descriptors and best-effort
// geographic labels from raw connection metadata.
package device

import (
	"strings"

	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/mileusna/useragent"
)

const (
	unknownDevice  = "Unknown Device"
	unknownBrowser = "Unknown Browser"
	unknownOS      = "Unknown OS"
)

// Info is the parsed device descriptor stored on a session row.
type Info struct {
	Name    string
	Type    domain.DeviceType
	Browser string
	OS      string
}

// Parse derives a device descriptor from a User-Agent string. Unknown or
// empty input degrades to the unknown defaults; it never fails.
func Parse(rawUA string) Info {
	if strings.TrimSpace(rawUA) == "" {
		return Info{
			Name:    unknownDevice,
			Type:    domain.DeviceDesktop,
			Browser: unknownBrowser,
			OS:      unknownOS,
		}
	}

	ua := useragent.Parse(rawUA)

	return Info{
		Name:    deviceName(ua),
		Type:    deviceType(ua),
		Browser: labelWithVersion(ua.Name, ua.Version, unknownBrowser),
		OS:      labelWithVersion(ua.OS, ua.OSVersion, unknownOS),
	}
}

func deviceName(ua useragent.UserAgent) string {
	if model := strings.TrimSpace(ua.Device); model != "" {
		return model
	}
	switch ua.OS {
	case useragent.MacOS:
		return "MacBook"
	case useragent.Windows:
		return "Windows PC"
	case useragent.IOS:
		return "iPhone"
	case useragent.Android:
		return "Android Device"
	}
	return unknownDevice
}

func deviceType(ua useragent.UserAgent) domain.DeviceType {
	switch {
	case ua.Tablet:
		return domain.DeviceTablet
	case ua.Mobile:
		return domain.DeviceMobile
	default:
		return domain.DeviceDesktop
	}
}

func labelWithVersion(name, version, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return name
	}
	return name + " " + version
}
