package signals

import "net/http"

// Analyze gathers the server-side signals of r. clientKey identifies the
// client for timing analysis; tracker may be nil to skip it.
func Analyze(r *http.Request, body []byte, claimed Claimed, clientKey string, tracker *Tracker) Signals {
	return Signals{
		HeaderFingerprint: headerFingerprint(r.Header),
		Headers:           analyzeHeaders(r.Header, claimed),
		Request:           analyzeRequest(r, body, claimed),
		Timing:            analyzeTiming(tracker, clientKey),
	}
}
