// Package signals extracts server-side automation signals from the HTTP
// request that carried a snapshot. It records raw observations only; the
// client-side engine does the scoring.
package signals

// Signals is the server-side view of one request.
type Signals struct {
	HeaderFingerprint string          `json:"header_fingerprint"`
	Headers           HeaderAnalysis  `json:"header_analysis"`
	Request           RequestAnalysis `json:"request_analysis"`
	Timing            TimingAnalysis  `json:"timing_analysis"`
}

type HeaderAnalysis struct {
	MissingExpected   []string `json:"missing_expected"`
	AutomationHeaders []string `json:"automation_headers"`
	// InconsistentValues names disagreements between the request headers
	// and what the page itself reported.
	InconsistentValues []string `json:"inconsistent_values"`
	HeaderOrder        []string `json:"header_order"`
	HeaderCount        int      `json:"header_count"`
}

type RequestAnalysis struct {
	PayloadEntropy    float64    `json:"payload_entropy"`
	RequestSize       int        `json:"request_size"`
	UserAgentAnalysis UAAnalysis `json:"user_agent_analysis"`
}

type UAAnalysis struct {
	Length             int      `json:"length"`
	ContainsAutomation bool     `json:"contains_automation"`
	AutomationKeywords []string `json:"automation_keywords"`
	Platform           string   `json:"platform"`
	Browser            string   `json:"browser"`
	// MismatchesNavigator is set when the HTTP User-Agent differs from the
	// user agent the page reported.
	MismatchesNavigator bool `json:"mismatches_navigator"`
}

type TimingAnalysis struct {
	RequestInterval    float64 `json:"request_interval_ms"`
	IntervalPrecision  int     `json:"interval_precision"` // round-number granularity of the interval, e.g. 100
	RequestsPerSecond  float64 `json:"requests_per_second"`
	HasPreviousRequest bool    `json:"has_previous_request"`
}

// Claimed is what the page reported about itself.
type Claimed struct {
	UserAgent string
	Languages []string
}
