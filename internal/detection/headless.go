package detection

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

// probeHeadless looks for the defaults a headless Chromium build leaves in place.
func probeHeadless(env Environment) ProbeResult {
	var r ProbeResult

	nav, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
	} else {
		if token, ok := containsAny(nav.UserAgent, headlessUATokens); ok {
			r.Strong(token + " in user agent")
		}
		if nav.PluginCount == 0 {
			r.Strong("No plugins detected")
		}
		if nav.WebdriverTrue() {
			r.Strong("navigator.webdriver is true")
		}
		if len(nav.Languages) == 0 {
			r.Strong("No languages detected")
		}
		if !nav.HasPermissions {
			r.Strong("Permissions API missing")
		}
		if claimsChromium(nav.UserAgent) {
			globals, err := env.Globals()
			switch {
			case err != nil:
				r.Weak(detectionError("window globals", err))
			case !present(globals, "chrome"):
				r.Strong("window.chrome is missing")
			}
		}
		if nav.ConnectionRTT != nil && *nav.ConnectionRTT == 0 {
			r.Strong("Network connection RTT is zero")
		}
	}

	screen, err := env.Screen()
	if err != nil {
		r.Weak(detectionError("screen", err))
	} else if screen.ColorDepth < 24 {
		r.Strong(fmt.Sprintf("Color depth %d is below 24 bits", screen.ColorDepth))
	}

	return r
}

// claimsChromium reports whether the user agent identifies a Chromium browser,
// the only family that exposes window.chrome.
func claimsChromium(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := uasurfer.Parse(userAgent)
	if ua.Browser.Name == uasurfer.BrowserChrome {
		return true
	}
	lower := strings.ToLower(userAgent)
	return strings.Contains(lower, "chrome/") || strings.Contains(lower, "chromium/") || strings.Contains(lower, "headlesschrome/")
}

func detectionError(what string, err error) string {
	return fmt.Sprintf("%s detection error: %v", what, err)
}
