package fingerprint

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

const osUnknown = "Unknown"

// osFonts lists fonts that ship with each desktop OS. Arial is deliberately
// counted for Windows only.
var osFonts = []struct {
	os    string
	fonts []string
}{
	{"Windows", []string{"Segoe UI", "Calibri", "Consolas", "Arial", "Tahoma", "Verdana", "MS Sans Serif", "MS Serif"}},
	{"macOS", []string{"San Francisco", "SF Pro Display", "SF Pro Text", "Helvetica Neue", "Lucida Grande", "Monaco", "Menlo"}},
	{"Linux", []string{"Liberation Sans", "Liberation Serif", "Liberation Mono", "DejaVu Sans", "DejaVu Serif", "DejaVu Sans Mono", "Ubuntu", "Noto Sans"}},
}

// ProbeFonts returns every font the collector is expected to test for.
func ProbeFonts() []string {
	var out []string
	for _, e := range osFonts {
		out = append(out, e.fonts...)
	}
	return out
}

type PlatformDetails struct {
	Windows bool `json:"windows"`
	MacOS   bool `json:"macos"`
	Linux   bool `json:"linux"`
}

type FontAnalysis struct {
	DetectedFonts   []string        `json:"detectedFonts"`
	OSFromFonts     string          `json:"osFromFonts"`
	OSFromNavigator string          `json:"osFromNavigator"`
	HasDiscrepancy  bool            `json:"hasDiscrepancy"`
	Explanation     string          `json:"explanation"`
	PlatformDetails PlatformDetails `json:"platformDetails"`
}

// AnalyzeFonts compares the OS suggested by the detected fonts with the OS
// the navigator claims.
func AnalyzeFonts(detected []string, platform, userAgent string) FontAnalysis {
	if detected == nil {
		detected = []string{}
	}
	scores := make([]int, len(osFonts))
	for _, font := range detected {
		for i, e := range osFonts {
			if containsFold(e.fonts, font) {
				scores[i]++
			}
		}
	}

	fontsOS, confidence := osUnknown, "low"
	best := 0
	for i, s := range scores {
		if s > best {
			best = s
			fontsOS = osFonts[i].os
		}
	}
	switch {
	case best >= 3:
		confidence = "high"
	case best >= 2:
		confidence = "medium"
	}

	navOS := OSFromNavigator(platform, userAgent)
	fa := FontAnalysis{
		DetectedFonts:   detected,
		OSFromFonts:     fmt.Sprintf("%s (%s confidence)", fontsOS, confidence),
		OSFromNavigator: navOS,
		HasDiscrepancy:  navOS != fontsOS && fontsOS != osUnknown,
		PlatformDetails: PlatformDetails{
			Windows: scores[0] > 0,
			MacOS:   scores[1] > 0,
			Linux:   scores[2] > 0,
		},
	}
	if fa.HasDiscrepancy {
		fa.Explanation = fmt.Sprintf("navigator reports %s but installed fonts indicate %s", navOS, fontsOS)
	}
	return fa
}

// OSFromNavigator resolves the OS from navigator.platform first and falls
// back to the user agent.
func OSFromNavigator(platform, userAgent string) string {
	p := strings.ToLower(platform)
	switch {
	case strings.Contains(p, "win"):
		return "Windows"
	case strings.Contains(p, "mac"):
		return "macOS"
	case strings.Contains(p, "linux"):
		return "Linux"
	}

	switch uasurfer.Parse(userAgent).OS.Name {
	case uasurfer.OSWindows:
		return "Windows"
	case uasurfer.OSMacOSX:
		return "macOS"
	case uasurfer.OSLinux, uasurfer.OSChromeOS:
		return "Linux"
	case uasurfer.OSAndroid:
		return "Android"
	case uasurfer.OSiOS:
		return "iOS"
	}
	return osUnknown
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
