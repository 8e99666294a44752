package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortontech/goblade/internal/detection"
)

func loadFixture(t *testing.T, name string) *Snapshot {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	s, err := Parse(data)
	require.NoError(t, err)
	return s
}

func TestParse_Empty(t *testing.T) {
	for _, body := range []string{"", "   ", "null", "{}", "\n{}\n"} {
		_, err := Parse([]byte(body))
		assert.ErrorIs(t, err, ErrEmpty, "body %q", body)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"navigator": [}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmpty))
	assert.Contains(t, err.Error(), "snapshot: decode")
}

func TestRead_Limit(t *testing.T) {
	_, err := Read(strings.NewReader(`{"screen":{"width":1}}`), 5)
	assert.Error(t, err)

	s, err := Read(strings.NewReader(`{"screen":{"width":1}}`), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Screen.Width)
}

func TestEvaluate_ChromeDesktop(t *testing.T) {
	s := loadFixture(t, "chrome_desktop.json")

	res := detection.Evaluate(s.Environment())
	assert.Equal(t, 0, res.RiskScore)
	assert.False(t, res.IsAutomated)
	assert.Empty(t, res.DetectionMethods)
	assert.Empty(t, res.DetectedIndicators)

	opened, closed := s.Handles()
	assert.Equal(t, int64(3), opened)
	assert.Equal(t, opened, closed)
}

func TestEvaluate_HeadlessChromeDriver(t *testing.T) {
	s := loadFixture(t, "headless_chromedriver.json")

	res := detection.Evaluate(s.Environment())
	assert.Equal(t, 100, res.RiskScore)
	assert.True(t, res.IsHeadless)
	assert.True(t, res.IsSelenium)
	assert.True(t, res.IsAutomated)
	assert.True(t, res.IsStealthBot)
	assert.False(t, res.IsPhantomJS)
	assert.Equal(t, []string{
		"Headless",
		"SeleniumFramework",
		"ChromeDriverArtifacts",
		"AutomationControlledFeature",
		"CanvasRenderingAnomaly",
		"WebGLRendererAnomaly",
	}, res.DetectionMethods)
	assert.Contains(t, res.DetectedIndicators, "document.$cdc_asdjflasutopfhvcZLmcfl_ injected by driver")
	assert.Contains(t, res.DetectedIndicators, `stack hook detection error: Permission denied to access property "prepareStackTrace"`)
}

func TestEnvironment_MissingSections(t *testing.T) {
	s, err := Parse([]byte(`{"screen": {"width": 1920, "height": 1080, "colorDepth": 24}}`))
	require.NoError(t, err)
	env := s.Environment()

	_, err = env.Navigator()
	assert.ErrorIs(t, err, ErrMissingSection)
	_, err = env.Globals()
	assert.ErrorIs(t, err, ErrMissingSection)
	_, err = env.OpenCanvas()
	assert.ErrorIs(t, err, ErrMissingSection)

	res := detection.Evaluate(env)
	assert.Equal(t, 0, res.RiskScore)
	assert.Contains(t, res.DetectedIndicators, "canvas detection error: snapshot section missing: canvas")
	assert.Contains(t, res.DetectedIndicators, "webgl detection error: snapshot section missing: webgl")
}

func TestEnvironment_WebGLUnsupported(t *testing.T) {
	s, err := Parse([]byte(`{"webgl": {"supported": false}}`))
	require.NoError(t, err)

	_, err = s.Environment().OpenWebGL()
	assert.ErrorIs(t, err, detection.ErrWebGLUnsupported)

	opened, _ := s.Handles()
	assert.Equal(t, int64(0), opened)
}

func TestEnvironment_CollectorErrorWins(t *testing.T) {
	s, err := Parse([]byte(`{"canvas": {"dataUrl": "data:,"}, "errors": {"canvasRender": "getContext returned null"}}`))
	require.NoError(t, err)

	c, err := s.Environment().OpenCanvas()
	require.NoError(t, err)
	assert.EqualError(t, c.Render(), "getContext returned null")
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	opened, closed := s.Handles()
	assert.Equal(t, int64(1), opened)
	assert.Equal(t, int64(1), closed)
}

func TestEnvironment_WebdriverSectionError(t *testing.T) {
	s, err := Parse([]byte(`{"screen": {"width": 1920, "height": 1080, "colorDepth": 24}, "errors": {"webdriver": "Cannot read descriptor"}}`))
	require.NoError(t, err)
	env := s.Environment()

	_, err = env.WebdriverDescriptor()
	assert.EqualError(t, err, "Cannot read descriptor")
	_, err = env.WebdriverGetterSource()
	assert.EqualError(t, err, "Cannot read descriptor")

	res := detection.Evaluate(env)
	assert.Contains(t, res.DetectedIndicators, "webdriver descriptor detection error: Cannot read descriptor")
	for _, ind := range res.DetectedIndicators {
		assert.NotContains(t, ind, "snapshot section missing: webdriverDescriptor")
	}
}

func TestEvaluate_ConcurrentSameSnapshot(t *testing.T) {
	s := loadFixture(t, "headless_chromedriver.json")
	want := detection.Evaluate(s.Environment())

	var wg sync.WaitGroup
	results := make([]detection.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = detection.Evaluate(s.Environment())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	opened, closed := s.Handles()
	assert.Equal(t, opened, closed)
}

func TestUserAgent(t *testing.T) {
	var nilSnap *Snapshot
	assert.Equal(t, "", nilSnap.UserAgent())

	s := loadFixture(t, "chrome_desktop.json")
	assert.True(t, strings.Contains(s.UserAgent(), "Chrome/124"))
	assert.Equal(t, "MacIntel", s.Navigator.Platform)
	assert.Equal(t, []string{"Helvetica Neue", "Menlo", "Monaco", "Arial"}, s.Fonts)
}
