package signals

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	expectedHeaders    = []string{"User-Agent", "Accept", "Accept-Language", "Accept-Encoding"}
	automationKeywords = []string{"headless", "selenium", "webdriver", "puppeteer", "playwright"}
)

// automationIndicators lists headers whose presence, or whose listed values,
// point at tooling. An empty value list means presence alone counts.
var automationIndicators = []struct {
	header string
	values []string
}{
	{"X-Requested-With", []string{"xmlhttprequest"}},
	{"Purpose", []string{"prefetch"}},
	{"X-Purpose", []string{"preview"}},
	{"Chrome-Proxy", nil},
	{"X-DevTools-Emulate-Network-Conditions-Client-Id", nil},
	{"X-Selenium-Session", nil},
}

func sortedKeys(headers http.Header) []string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func analyzeHeaders(headers http.Header, claimed Claimed) HeaderAnalysis {
	analysis := HeaderAnalysis{
		MissingExpected:    checkMissingHeaders(headers),
		AutomationHeaders:  detectAutomationHeaders(headers),
		InconsistentValues: []string{},
		HeaderOrder:        []string{},
		HeaderCount:        len(headers),
	}

	for _, key := range sortedKeys(headers) {
		analysis.HeaderOrder = append(analysis.HeaderOrder, strings.ToLower(key))
	}
	sort.Strings(analysis.HeaderOrder)

	if ua := headers.Get("User-Agent"); claimed.UserAgent != "" && ua != claimed.UserAgent {
		analysis.InconsistentValues = append(analysis.InconsistentValues, "navigator-ua-mismatch")
	}
	if isLanguageInconsistent(headers.Get("Accept-Language"), claimed.Languages) {
		analysis.InconsistentValues = append(analysis.InconsistentValues, "language-mismatch")
	}
	return analysis
}

// detectAutomationHeaders returns "Name: value" for every header that carries
// an automation keyword or matches an indicator. Each header is listed once.
func detectAutomationHeaders(headers http.Header) []string {
	found := []string{}
	seen := map[string]bool{}
	add := func(header, value string) {
		if !seen[header] {
			seen[header] = true
			found = append(found, fmt.Sprintf("%s: %s", header, value))
		}
	}

	for _, header := range sortedKeys(headers) {
		for _, value := range headers[header] {
			lower := strings.ToLower(value)
			for _, keyword := range automationKeywords {
				if strings.Contains(lower, keyword) {
					add(header, value)
					break
				}
			}
		}
	}

	for _, ind := range automationIndicators {
		value := headers.Get(ind.header)
		if value == "" {
			continue
		}
		if len(ind.values) == 0 {
			add(http.CanonicalHeaderKey(ind.header), value)
			continue
		}
		lower := strings.ToLower(value)
		for _, suspicious := range ind.values {
			if strings.Contains(lower, suspicious) {
				add(http.CanonicalHeaderKey(ind.header), value)
				break
			}
		}
	}
	return found
}

func checkMissingHeaders(headers http.Header) []string {
	missing := []string{}
	for _, expected := range expectedHeaders {
		if headers.Get(expected) == "" {
			missing = append(missing, expected)
		}
	}
	return missing
}

// isLanguageInconsistent reports whether the primary Accept-Language tag
// names a different language than the page's first navigator language.
func isLanguageInconsistent(acceptLanguage string, languages []string) bool {
	if acceptLanguage == "" || len(languages) == 0 {
		return false
	}
	header := primaryLanguage(strings.Split(acceptLanguage, ",")[0])
	nav := primaryLanguage(languages[0])
	return header != "" && nav != "" && header != "*" && header != nav
}

func primaryLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexByte(tag, ';'); i >= 0 {
		tag = tag[:i]
	}
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// headerFingerprint hashes the sorted header names with the first 20
// characters of each value.
func headerFingerprint(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := headers.Get(key)
		if len(value) > 20 {
			value = value[:20] + "..."
		}
		parts = append(parts, key+":"+value)
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:8])
}
