package provision

import (
	"fmt"
	"strings"

	"github.com/minerva-brain/backend/internal/config"
)

// RedactedPass replaces the Wi-Fi credential unless secrets are
// explicitly requested.
const RedactedPass = "********"

// RenderHeader renders the device settings as the config.h the display
// firmware compiles against. With secrets off the Wi-Fi credential is
// redacted, so the output is safe to show in a dashboard.
func RenderHeader(dev config.DeviceConfig, secrets bool) string {
	pass := dev.WifiPass
	if !secrets {
		pass = RedactedPass
	}

	var b strings.Builder
	b.WriteString("// Copy this file to config.h and fill in your values.\n")
	b.WriteString("\n")
	b.WriteString("#pragma once\n")
	b.WriteString("\n")
	b.WriteString("// Wi-Fi credentials\n")
	fmt.Fprintf(&b, "#define WIFI_SSID %s\n", quote(dev.WifiSSID))
	fmt.Fprintf(&b, "#define WIFI_PASS %s\n", quote(pass))
	b.WriteString("\n")
	b.WriteString("// Minerva backend location\n")
	fmt.Fprintf(&b, "#define MINERVA_HOST %s\n", quote(dev.BackendHost))
	fmt.Fprintf(&b, "#define MINERVA_PORT %d\n", dev.BackendPort)
	b.WriteString("\n")
	b.WriteString("// Timezone offset in seconds (e.g., 0 for UTC, 3600 for UTC+1)\n")
	fmt.Fprintf(&b, "#define TIMEZONE_OFFSET_SECONDS %d\n", dev.TimezoneOffsetSeconds)
	b.WriteString("\n")
	b.WriteString("// Debug logging (set to 1 to enable verbose Serial/TFT debug footer)\n")
	fmt.Fprintf(&b, "#define MINERVA_DEBUG %d\n", dev.Debug)
	return b.String()
}

// Settings is the JSON view of the device configuration.
type Settings struct {
	WifiSSID              string `json:"wifiSsid"`
	WifiPass              string `json:"wifiPass"`
	BackendHost           string `json:"backendHost"`
	BackendPort           int    `json:"backendPort"`
	TimezoneOffsetSeconds int    `json:"timezoneOffsetSeconds"`
	Debug                 int    `json:"debug"`
}

// Describe returns the device settings for the JSON endpoint, redacting
// the credential unless secrets are requested.
func Describe(dev config.DeviceConfig, secrets bool) Settings {
	pass := dev.WifiPass
	if !secrets {
		pass = RedactedPass
	}
	return Settings{
		WifiSSID:              dev.WifiSSID,
		WifiPass:              pass,
		BackendHost:           dev.BackendHost,
		BackendPort:           dev.BackendPort,
		TimezoneOffsetSeconds: dev.TimezoneOffsetSeconds,
		Debug:                 dev.Debug,
	}
}

// quote wraps a value in double quotes, escaping the characters that
// would break a C string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
