package signals

import (
	"strings"

	"github.com/avct/uasurfer"
)

var uaAutomationKeywords = []string{
	"headless", "selenium", "webdriver", "puppeteer",
	"playwright", "phantom", "jsdom", "nightmare",
	"chrome-headless", "automated", "bot", "crawler",
}

func analyzeUserAgent(userAgent string, claimed Claimed) UAAnalysis {
	analysis := UAAnalysis{
		Length:              len(userAgent),
		AutomationKeywords:  []string{},
		MismatchesNavigator: claimed.UserAgent != "" && userAgent != claimed.UserAgent,
	}

	lowerUA := strings.ToLower(userAgent)
	for _, keyword := range uaAutomationKeywords {
		if strings.Contains(lowerUA, keyword) {
			analysis.ContainsAutomation = true
			analysis.AutomationKeywords = append(analysis.AutomationKeywords, keyword)
		}
	}

	ua := uasurfer.Parse(userAgent)
	analysis.Platform = platformName(ua.OS.Name)
	analysis.Browser = browserName(ua.Browser.Name)
	return analysis
}

func platformName(os uasurfer.OSName) string {
	switch os {
	case uasurfer.OSiOS:
		return "iOS"
	case uasurfer.OSAndroid:
		return "Android"
	case uasurfer.OSWindows, uasurfer.OSWindowsPhone:
		return "Windows"
	case uasurfer.OSMacOSX:
		return "macOS"
	case uasurfer.OSLinux, uasurfer.OSChromeOS:
		return "Linux"
	}
	return ""
}

func browserName(b uasurfer.BrowserName) string {
	switch b {
	case uasurfer.BrowserChrome:
		return "Chrome"
	case uasurfer.BrowserFirefox:
		return "Firefox"
	case uasurfer.BrowserSafari:
		return "Safari"
	case uasurfer.BrowserIE:
		return "Edge"
	case uasurfer.BrowserOpera:
		return "Opera"
	}
	return ""
}
