package detection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func evidenceFor(cats ...Category) Evidence {
	var ev Evidence
	for _, c := range cats {
		ev[c].Strong(c.String() + " evidence")
	}
	return ev
}

func TestScore_StealthCombinations(t *testing.T) {
	stealthCats := []Category{WebdriverTampering, ChromeDriverArtifacts, ErrorStackAnomaly}
	for mask := 0; mask < 1<<len(stealthCats); mask++ {
		var cats []Category
		want := 0
		for i, c := range stealthCats {
			if mask&(1<<i) != 0 {
				cats = append(cats, c)
				want += weights[c]
			}
		}
		t.Run(fmt.Sprintf("mask=%03b", mask), func(t *testing.T) {
			res := Score(evidenceFor(cats...))
			stealth := mask != 0
			if stealth {
				want += stealthBonus
			}
			assert.Equal(t, stealth, res.IsStealthBot)
			assert.Equal(t, stealth, res.IsAutomated)
			assert.Equal(t, mask&0b011 != 0, res.IsSelenium)
			assert.Equal(t, clamp(want, 0, maxRiskScore), res.RiskScore)
			assert.Len(t, res.DetectionMethods, len(cats))
		})
	}
}

func TestScore_FlagDerivation(t *testing.T) {
	tests := []struct {
		cat      Category
		headless bool
		selenium bool
		phantom  bool
		autom    bool
	}{
		{Headless, true, false, false, true},
		{SeleniumFramework, false, true, false, true},
		{PhantomJS, false, false, true, true},
		{GeneralAutomation, false, false, false, true},
		{AutomationControlledFeature, false, false, false, false},
		{CanvasRenderingAnomaly, false, false, false, false},
		{WebGLRendererAnomaly, true, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.cat.String(), func(t *testing.T) {
			res := Score(evidenceFor(tt.cat))
			assert.Equal(t, tt.headless, res.IsHeadless, "isHeadless")
			assert.Equal(t, tt.selenium, res.IsSelenium, "isSelenium")
			assert.Equal(t, tt.phantom, res.IsPhantomJS, "isPhantomJS")
			assert.Equal(t, tt.autom, res.IsAutomated, "isAutomated")
			assert.False(t, res.IsStealthBot)
			assert.Equal(t, Weight(tt.cat), res.RiskScore)
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	assert.Equal(t, 0, Score(Evidence{}).RiskScore)
	assert.Equal(t, 100, Score(evidenceFor(Categories()...)).RiskScore)
}

func TestScore_WeakOnlyEvidence(t *testing.T) {
	var ev Evidence
	for _, c := range Categories() {
		ev[c].Weak(c.String() + " note")
	}
	res := Score(ev)
	assert.Equal(t, 0, res.RiskScore)
	assert.Empty(t, res.DetectionMethods)
	assert.Len(t, res.DetectedIndicators, int(numCategories))
}

func TestWeight(t *testing.T) {
	total := 0
	for _, c := range Categories() {
		total += Weight(c)
	}
	assert.Equal(t, 200, total)
	assert.Equal(t, 0, Weight(Category(-1)))
	assert.Equal(t, 0, Weight(numCategories))
	assert.Equal(t, "Unknown", numCategories.String())
}
