package detection

// weights are the points each triggered category adds to the risk score.
var weights = [numCategories]int{
	SeleniumFramework:           35,
	WebdriverTampering:          30,
	ChromeDriverArtifacts:       25,
	ErrorStackAnomaly:           25,
	Headless:                    20,
	WebGLRendererAnomaly:        15,
	AutomationControlledFeature: 15,
	PhantomJS:                   15,
	CanvasRenderingAnomaly:      10,
	GeneralAutomation:           10,
}

const (
	stealthBonus = 15
	maxRiskScore = 100
)

// Weight returns the score contribution of a triggered category.
func Weight(c Category) int {
	if c < 0 || c >= numCategories {
		return 0
	}
	return weights[c]
}

// Score maps per-category evidence to the final Result.
//
// Tampering and driver artifacts are folded into IsSelenium even though
// other CDP drivers can produce them.
func Score(ev Evidence) Result {
	triggered := func(c Category) bool { return ev[c].Triggered() }

	stealth := triggered(WebdriverTampering) || triggered(ChromeDriverArtifacts) || triggered(ErrorStackAnomaly)

	res := Result{
		IsStealthBot: stealth,
		IsHeadless:   triggered(Headless) || triggered(WebGLRendererAnomaly),
		IsSelenium:   triggered(SeleniumFramework) || triggered(WebdriverTampering) || triggered(ChromeDriverArtifacts),
		IsPhantomJS:  triggered(PhantomJS),
		IsAutomated: triggered(Headless) || triggered(SeleniumFramework) || triggered(PhantomJS) ||
			triggered(GeneralAutomation) || stealth,
		DetectedIndicators: []string{},
		DetectionMethods:   []string{},
	}

	score := 0
	for c := Category(0); c < numCategories; c++ {
		res.DetectedIndicators = append(res.DetectedIndicators, ev[c].Indicators()...)
		if triggered(c) {
			score += weights[c]
			res.DetectionMethods = append(res.DetectionMethods, c.String())
		}
	}
	if stealth {
		score += stealthBonus
	}
	res.RiskScore = clamp(score, 0, maxRiskScore)

	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
