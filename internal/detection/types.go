package detection

// Category identifies one detector probe. The declaration order is the
// evaluation order and the order of every list in Result.
type Category int

const (
	Headless Category = iota
	SeleniumFramework
	PhantomJS
	GeneralAutomation
	WebdriverTampering
	ChromeDriverArtifacts
	ErrorStackAnomaly
	AutomationControlledFeature
	CanvasRenderingAnomaly
	WebGLRendererAnomaly

	numCategories
)

var categoryNames = [numCategories]string{
	Headless:                    "Headless",
	SeleniumFramework:           "SeleniumFramework",
	PhantomJS:                   "PhantomJS",
	GeneralAutomation:           "GeneralAutomation",
	WebdriverTampering:          "WebdriverTampering",
	ChromeDriverArtifacts:       "ChromeDriverArtifacts",
	ErrorStackAnomaly:           "ErrorStackAnomaly",
	AutomationControlledFeature: "AutomationControlledFeature",
	CanvasRenderingAnomaly:      "CanvasRenderingAnomaly",
	WebGLRendererAnomaly:        "WebGLRendererAnomaly",
}

// Categories returns every category in evaluation order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "Unknown"
	}
	return categoryNames[c]
}

// Strength tags a signal as scoring evidence or informational only.
type Strength int

const (
	Weak Strength = iota
	Strong
)

// Signal is one piece of evidence recorded by a probe.
type Signal struct {
	Strength  Strength
	Indicator string
}

// ProbeResult is the output of one probe. Triggered is derived from the
// recorded signals, so a weak signal can never raise it.
type ProbeResult struct {
	signals []Signal
}

// Strong records evidence of automation.
func (p *ProbeResult) Strong(indicator string) {
	p.signals = append(p.signals, Signal{Strength: Strong, Indicator: indicator})
}

// Weak records an informational indicator that does not trigger the probe.
func (p *ProbeResult) Weak(indicator string) {
	p.signals = append(p.signals, Signal{Strength: Weak, Indicator: indicator})
}

// Triggered reports whether any strong signal was recorded.
func (p ProbeResult) Triggered() bool {
	for _, s := range p.signals {
		if s.Strength == Strong {
			return true
		}
	}
	return false
}

// Indicators returns the indicator text of every signal in recording order.
func (p ProbeResult) Indicators() []string {
	out := make([]string, 0, len(p.signals))
	for _, s := range p.signals {
		out = append(out, s.Indicator)
	}
	return out
}

// Signals returns a copy of the recorded signals.
func (p ProbeResult) Signals() []Signal {
	return append([]Signal(nil), p.signals...)
}

// Evidence holds one ProbeResult per category.
type Evidence [numCategories]ProbeResult

// Result is the final verdict of one evaluation. It is built once and never
// mutated afterwards.
type Result struct {
	IsHeadless         bool     `json:"isHeadless"`
	IsSelenium         bool     `json:"isSelenium"`
	IsPhantomJS        bool     `json:"isPhantomJS"`
	IsAutomated        bool     `json:"isAutomated"`
	IsStealthBot       bool     `json:"isStealthBot"`
	DetectedIndicators []string `json:"detectedIndicators"`
	RiskScore          int      `json:"riskScore"`
	DetectionMethods   []string `json:"detectionMethods"`
}
