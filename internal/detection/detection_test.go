package detection

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEvaluate_GenuineBrowser(t *testing.T) {
	env := genuine()
	res := Evaluate(env)

	assert.Equal(t, 0, res.RiskScore)
	assert.False(t, res.IsAutomated)
	assert.False(t, res.IsHeadless)
	assert.False(t, res.IsSelenium)
	assert.False(t, res.IsPhantomJS)
	assert.False(t, res.IsStealthBot)
	assert.Empty(t, res.DetectionMethods)
	assert.NotNil(t, res.DetectionMethods)
	assert.Empty(t, res.DetectedIndicators)
}

func TestEvaluate_WebdriverFlagOnly(t *testing.T) {
	env := genuine()
	env.nav.Webdriver = boolPtr(true)
	// A real browser under WebDriver still renders and has plugins,
	// so only the selenium and headless rules see the flag.
	res := Evaluate(env)

	assert.True(t, res.IsSelenium)
	assert.True(t, res.IsHeadless)
	assert.True(t, res.IsAutomated)
	assert.False(t, res.IsStealthBot)
	assert.Contains(t, res.DetectedIndicators, "navigator.webdriver present")
	assert.Equal(t, []string{"Headless", "SeleniumFramework"}, res.DetectionMethods)
	assert.Contains(t, res.DetectionMethods, "SeleniumFramework")
	assert.Equal(t, Weight(SeleniumFramework)+Weight(Headless), res.RiskScore)
}

func TestEvaluate_SeleniumOnlyScore(t *testing.T) {
	env := genuine()
	env.addGlobal("__webdriver_evaluate")

	res := Evaluate(env)
	assert.Equal(t, 35, res.RiskScore)
	assert.True(t, res.IsSelenium)
	assert.True(t, res.IsAutomated)
	assert.False(t, res.IsStealthBot)
	assert.Equal(t, []string{"SeleniumFramework"}, res.DetectionMethods)
}

func TestEvaluate_TamperedWebdriver(t *testing.T) {
	env := genuine()
	env.webdriverDesc = &Descriptor{HasGetter: true, Configurable: true}
	env.getterSource = "function () { return false; }"

	res := Evaluate(env)
	assert.True(t, res.IsStealthBot)
	assert.True(t, res.IsSelenium)
	assert.True(t, res.IsAutomated)
	assert.Contains(t, res.DetectionMethods, "WebdriverTampering")
	assert.Equal(t, 30+stealthBonus, res.RiskScore)
	assert.Contains(t, res.DetectedIndicators, "navigator.webdriver has a custom accessor")
	assert.Contains(t, res.DetectedIndicators, "webdriver getter rewritten to return a constant")
}

func TestEvaluate_SoftwareRenderer(t *testing.T) {
	env := genuine()
	env.renderer = "Google SwiftShader"
	env.vendor = "Google Inc."

	res := Evaluate(env)
	assert.True(t, res.IsHeadless)
	assert.False(t, res.IsAutomated)
	assert.Equal(t, 15, res.RiskScore)
	assert.Equal(t, []string{"WebGLRendererAnomaly"}, res.DetectionMethods)
	assert.Contains(t, res.DetectedIndicators, "Software WebGL renderer: Google SwiftShader (Google Inc.)")
}

func TestEvaluate_ClampsAtHundred(t *testing.T) {
	env := genuine()
	env.nav.UserAgent = "Mozilla/5.0 HeadlessChrome/120.0 PhantomJS"
	env.nav.Webdriver = boolPtr(true)
	env.nav.PluginsFrozen = true
	env.screen.Width = 0
	env.addGlobal("__webdriver_evaluate")
	env.addGlobal("_phantom")
	env.addGlobal("$cdc_asdjflasutopfhvcZLmcfl_")
	env.webdriverDesc = &Descriptor{HasGetter: true}
	env.stack = "Error\n    at chromedriver:1:1"
	env.canvasData = "data:,"
	env.renderer = "llvmpipe (LLVM 15.0.7, 256 bits)"

	res := Evaluate(env)
	assert.Equal(t, 100, res.RiskScore)
	assert.Len(t, res.DetectionMethods, int(numCategories))
	for i, c := range Categories() {
		assert.Equal(t, c.String(), res.DetectionMethods[i])
	}
}

func TestEvaluate_WeakSignalsDoNotScore(t *testing.T) {
	env := genuine()
	env.nav.HasBattery = false
	env.win.HasNotification = false
	env.webdriverDesc = &Descriptor{Writable: true}
	env.hookReplaced = true
	env.hookSource = "function (err, frames) { return frames.join('\\n') }"

	res := Evaluate(env)
	assert.Equal(t, 0, res.RiskScore)
	assert.False(t, res.IsAutomated)
	assert.False(t, res.IsStealthBot)
	assert.Empty(t, res.DetectionMethods)
	assert.Equal(t, []string{
		"Notification API missing",
		"Battery API missing (normal in modern browsers)",
		"navigator.webdriver is an own property of navigator",
		"Error.prepareStackTrace overridden",
	}, res.DetectedIndicators)
}

func TestEvaluate_Idempotent(t *testing.T) {
	env := genuine()
	env.addGlobal("callPhantom")
	env.canvasData = "tiny"

	first := Evaluate(env)
	second := Evaluate(env)
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestEvaluate_AccessorErrorsAreContained(t *testing.T) {
	env := genuine()
	env.navErr = errBroken

	res := Evaluate(env)
	assert.Equal(t, 0, res.RiskScore)
	assert.False(t, res.IsAutomated)
	assert.Contains(t, res.DetectedIndicators, "navigator detection error: broken accessor")
}

func TestDetector_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDetector(zap.New(core))

	env := genuine()
	env.panicOnScreen = true

	var res Result
	require.NotPanics(t, func() { res = d.Evaluate(env) })

	assert.Equal(t, 0, res.RiskScore)
	assert.Contains(t, res.DetectedIndicators, "Headless detection error: screen exploded")
	assert.Contains(t, res.DetectedIndicators, "GeneralAutomation detection error: screen exploded")
	assert.Equal(t, 2, logs.FilterMessage("probe panicked").Len())
}

func TestEvaluate_ReleasesHandles(t *testing.T) {
	env := genuine()
	Evaluate(env)

	assert.Equal(t, 1, env.framesOpened)
	assert.Equal(t, env.framesOpened, env.framesClosed)
	assert.Equal(t, 1, env.canvasOpened)
	assert.Equal(t, env.canvasOpened, env.canvasClosed)
	assert.Equal(t, 1, env.webglOpened)
	assert.Equal(t, env.webglOpened, env.webglClosed)
}

func TestProbeHeadless(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name   string
		mutate func(*fakeEnv)
		want   string
	}{
		{"ua token", func(e *fakeEnv) { e.nav.UserAgent = strings.Replace(e.nav.UserAgent, "Chrome/", "HeadlessChrome/", 1) }, "HeadlessChrome in user agent"},
		{"no plugins", func(e *fakeEnv) { e.nav.PluginCount = 0 }, "No plugins detected"},
		{"no languages", func(e *fakeEnv) { e.nav.Languages = nil }, "No languages detected"},
		{"no permissions", func(e *fakeEnv) { e.nav.HasPermissions = false }, "Permissions API missing"},
		{"chrome object missing", func(e *fakeEnv) { e.globals = Bag{} }, "window.chrome is missing"},
		{"zero rtt", func(e *fakeEnv) { e.nav.ConnectionRTT = &zero }, "Network connection RTT is zero"},
		{"low color depth", func(e *fakeEnv) { e.screen.ColorDepth = 16 }, "Color depth 16 is below 24 bits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := genuine()
			tt.mutate(env)
			r := probeHeadless(env)
			if !r.Triggered() {
				t.Fatalf("expected probe to trigger")
			}
			assert.Contains(t, r.Indicators(), tt.want)
		})
	}
}

func TestProbeHeadless_ChromeObjectOnlyForChromium(t *testing.T) {
	env := genuine()
	env.nav.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0"
	env.globals = Bag{}

	r := probeHeadless(env)
	assert.False(t, r.Triggered())
}

func TestProbeHeadless_MissingRTTIsIgnored(t *testing.T) {
	env := genuine()
	env.nav.ConnectionRTT = nil
	assert.False(t, probeHeadless(env).Triggered())
}

func TestProbeSelenium_DocumentPatterns(t *testing.T) {
	env := genuine()
	env.doc = append(env.doc, Property{Name: "$wdc_lasutopfhvcZLm", Truthy: true})

	r := probeSelenium(env)
	assert.True(t, r.Triggered())
	assert.Contains(t, r.Indicators(), "document.$wdc_lasutopfhvcZLm matches a driver pattern")
}

func TestProbeSelenium_FalsyMarkerIgnored(t *testing.T) {
	env := genuine()
	env.globals = append(env.globals, Property{Name: "_selenium", Type: "undefined"})
	assert.False(t, probeSelenium(env).Triggered())
}

func TestProbePhantomJS(t *testing.T) {
	env := genuine()
	env.nav.UserAgent = "Mozilla/5.0 (Unknown; Linux x86_64) AppleWebKit/538.1 (KHTML, like Gecko) PhantomJS/2.1.1 Safari/538.1"

	r := probePhantomJS(env)
	assert.True(t, r.Triggered())
	assert.Equal(t, []string{"PhantomJS in user agent"}, r.Indicators())
}

func TestProbeGeneralAutomation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeEnv)
		want   string
	}{
		{"screen", func(e *fakeEnv) { e.screen.Height = 0 }, "Invalid screen dimensions"},
		{"window", func(e *fakeEnv) { e.win.OuterWidth = 0 }, "Invalid window dimensions"},
		{"dom automation", func(e *fakeEnv) { e.addGlobal("domAutomationController") }, "DOM automation detected"},
		{"cypress", func(e *fakeEnv) { e.addGlobal("Cypress") }, "Cypress test runner detected"},
		{"playwright", func(e *fakeEnv) { e.addGlobal("__playwright") }, "Playwright automation marker detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := genuine()
			tt.mutate(env)
			r := probeGeneralAutomation(env)
			assert.True(t, r.Triggered())
			assert.Contains(t, r.Indicators(), tt.want)
		})
	}
}

func TestProbeWebdriverTampering_NestedFrame(t *testing.T) {
	env := genuine()
	env.frameWebdriver = boolPtr(true)

	r := probeWebdriverTampering(env)
	assert.True(t, r.Triggered())
	assert.Contains(t, r.Indicators(), "nested frame reports navigator.webdriver=true while top-level does not")
	assert.Equal(t, 1, env.framesClosed)
}

func TestProbeWebdriverTampering_FrameError(t *testing.T) {
	env := genuine()
	env.frameErr = errors.New("blocked by sandbox")

	r := probeWebdriverTampering(env)
	assert.False(t, r.Triggered())
	assert.Equal(t, []string{"nested frame detection error: blocked by sandbox"}, r.Indicators())
}

func TestProbeWebdriverTampering_NonNativeGetter(t *testing.T) {
	env := genuine()
	env.getterSource = "function () { return window.__flag }"

	r := probeWebdriverTampering(env)
	assert.False(t, r.Triggered())
	assert.Equal(t, []string{"webdriver getter is not native code"}, r.Indicators())
}

func TestProbeChromeDriverArtifacts(t *testing.T) {
	env := genuine()
	env.addDocument("$cdc_asdjflasutopfhvcZLmcfl_")
	env.globals = append(env.globals, Property{Name: "cdc_adoQpoasnfa76pfcZLmcfl_Array", Truthy: true})
	env.addGlobal("$chrome_asyncScriptInfo")

	r := probeChromeDriverArtifacts(env)
	assert.Equal(t, []string{
		"document.$cdc_asdjflasutopfhvcZLmcfl_ injected by driver",
		"CDP session artifact $chrome_asyncScriptInfo detected",
	}, r.Indicators())
	assert.True(t, r.Triggered())
}

func TestProbeErrorStack(t *testing.T) {
	tests := []struct {
		name  string
		stack string
		want  string
	}{
		{"executable", "Error\n at /usr/bin/geckodriver:1", "Error stack references driver executable geckodriver"},
		{"client", "Error\n at node_modules/selenium-webdriver/lib/http.js:12", "Error stack references WebDriver client selenium-webdriver"},
		{"injected", "Error\n at __webdriver_script_fn (eval)", "Error stack contains injected name __webdriver_script_fn"},
		{"playwright package", "Error\n at node_modules/playwright-core/lib/server/page.js:9", "Error stack references WebDriver client playwright-core"},
		{"playwright evaluation", "Error\n at __playwright_evaluation_script__:3:7", "Error stack references WebDriver client __playwright_evaluation_script__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := genuine()
			env.stack = tt.stack
			r := probeErrorStack(env)
			assert.True(t, r.Triggered())
			assert.Contains(t, r.Indicators(), tt.want)
		})
	}
}

func TestProbeErrorStack_ProductSiteIsClean(t *testing.T) {
	for _, stack := range []string{
		"Error\n at render (https://playwright.dev/assets/js/main.js:2:100)",
		"Error\n at init (https://nightwatchjs.org/js/app.js:1:5)",
	} {
		env := genuine()
		env.stack = stack
		r := probeErrorStack(env)
		assert.False(t, r.Triggered(), stack)
		assert.Empty(t, r.Indicators(), stack)
	}

	env := genuine()
	env.stack = "Error\n at render (https://playwright.dev/assets/js/main.js:2:100)"
	res := Evaluate(env)
	assert.False(t, res.IsStealthBot)
	assert.Equal(t, 0, res.RiskScore)
}

func TestProbeErrorStack_ToolingHook(t *testing.T) {
	env := genuine()
	env.hookReplaced = true
	env.hookSource = "(e, s) => s.filter(f => !f.getFileName().includes('pptr:'))"

	r := probeErrorStack(env)
	assert.True(t, r.Triggered())
	assert.Equal(t, []string{"Error.prepareStackTrace overridden with pptr: code"}, r.Indicators())
}

func TestProbeAutomationFeatures(t *testing.T) {
	env := genuine()
	env.nav.Brands = []string{"HeadlessChrome", "Chromium"}
	env.nav.PluginsSealed = true
	env.addGlobal("__nightmare")

	r := probeAutomationFeatures(env)
	assert.Equal(t, []string{
		"Client hints brand HeadlessChrome identifies automation",
		"navigator.plugins is sealed",
		"Nightmare signature global __nightmare detected",
	}, r.Indicators())
}

func TestProbeCanvas(t *testing.T) {
	env := genuine()
	env.canvasData = "data:image/png;base64,AAAA"

	r := probeCanvas(env)
	assert.True(t, r.Triggered())
	assert.Equal(t, []string{"Canvas output too small (26 bytes)"}, r.Indicators())
	assert.Equal(t, 1, env.canvasClosed)
}

func TestProbeCanvas_OpenError(t *testing.T) {
	env := genuine()
	env.canvasErr = errBroken

	r := probeCanvas(env)
	assert.False(t, r.Triggered())
	assert.Equal(t, []string{"canvas detection error: broken accessor"}, r.Indicators())
}

func TestProbeWebGL_Unsupported(t *testing.T) {
	env := genuine()
	env.webglErr = ErrWebGLUnsupported

	r := probeWebGL(env)
	assert.True(t, r.Triggered())
	assert.Equal(t, []string{"WebGL context unavailable"}, r.Indicators())
}

func TestProbeWebGL_OtherError(t *testing.T) {
	env := genuine()
	env.webglErr = errBroken

	r := probeWebGL(env)
	assert.False(t, r.Triggered())
	assert.Equal(t, []string{"webgl detection error: broken accessor"}, r.Indicators())
}
