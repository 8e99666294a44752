package detection

import (
	"fmt"

	"go.uber.org/zap"
)

// Probe inspects one category of evidence.
type Probe func(env Environment) ProbeResult

// probes is indexed by category; Collect runs them in this order.
var probes = [numCategories]Probe{
	Headless:                    probeHeadless,
	SeleniumFramework:           probeSelenium,
	PhantomJS:                   probePhantomJS,
	GeneralAutomation:           probeGeneralAutomation,
	WebdriverTampering:          probeWebdriverTampering,
	ChromeDriverArtifacts:       probeChromeDriverArtifacts,
	ErrorStackAnomaly:           probeErrorStack,
	AutomationControlledFeature: probeAutomationFeatures,
	CanvasRenderingAnomaly:      probeCanvas,
	WebGLRendererAnomaly:        probeWebGL,
}

// Detector evaluates environments. The zero value is ready to use.
type Detector struct {
	logger *zap.Logger
}

// NewDetector returns a Detector that logs contained probe failures.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger.Named("detection")}
}

// Evaluate runs every probe once against env and scores the evidence.
// It never fails: a probe that panics contributes only a weak indicator.
func (d *Detector) Evaluate(env Environment) Result {
	return Score(d.Collect(env))
}

// Collect runs every probe in category order.
func (d *Detector) Collect(env Environment) Evidence {
	var ev Evidence
	for c := Category(0); c < numCategories; c++ {
		ev[c] = d.run(c, env)
	}
	return ev
}

func (d *Detector) run(c Category, env Environment) (r ProbeResult) {
	defer func() {
		if rec := recover(); rec != nil {
			if d.logger != nil {
				d.logger.Warn("probe panicked", zap.Stringer("category", c), zap.Any("panic", rec))
			}
			r = ProbeResult{}
			r.Weak(fmt.Sprintf("%s detection error: %v", c, rec))
		}
	}()
	return probes[c](env)
}

var defaultDetector Detector

// Evaluate runs the default detector against env.
func Evaluate(env Environment) Result {
	return defaultDetector.Evaluate(env)
}
