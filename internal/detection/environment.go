package detection

import "errors"

// Environment is the read-only view of a browser page that probes inspect.
// Implementations must be safe to read from several evaluations at once.
type Environment interface {
	Navigator() (Navigator, error)
	Screen() (Screen, error)
	Window() (Window, error)

	// Globals and Document enumerate the own properties of the window and
	// document objects in enumeration order.
	Globals() (PropertyBag, error)
	Document() (PropertyBag, error)

	// WebdriverDescriptor returns the own descriptor of navigator.webdriver
	// on the navigator instance, or nil when it is only inherited.
	WebdriverDescriptor() (*Descriptor, error)
	// WebdriverGetterSource returns the source text of the prototype-level
	// webdriver accessor.
	WebdriverGetterSource() (string, error)

	// OpenFrame creates a fresh same-origin nested browsing context.
	OpenFrame() (Frame, error)

	// RaiseError throws and catches an error and returns its stack text.
	RaiseError() (string, error)
	// StackHook returns the source of the stack formatting hook and whether
	// it has been replaced.
	StackHook() (source string, overridden bool, err error)

	OpenCanvas() (Canvas, error)
	// OpenWebGL returns ErrWebGLUnsupported when no context can be created.
	OpenWebGL() (WebGL, error)
}

// ErrWebGLUnsupported reports that the page cannot create a WebGL context.
var ErrWebGLUnsupported = errors.New("webgl context unavailable")

// Navigator holds the navigator properties the probes read.
type Navigator struct {
	UserAgent string `json:"userAgent"`
	// Webdriver is nil when the property is undefined.
	Webdriver *bool `json:"webdriver"`

	PluginCount    int      `json:"pluginCount"`
	PluginsFrozen  bool     `json:"pluginsFrozen"`
	PluginsSealed  bool     `json:"pluginsSealed"`
	Languages      []string `json:"languages"`
	HasPermissions bool     `json:"permissions"`
	HasBattery     bool     `json:"battery"`

	// ConnectionRTT is nil when the Network Information API is missing.
	ConnectionRTT *float64 `json:"connectionRtt"`
	// Brands is nil when navigator.userAgentData is missing.
	Brands []string `json:"brands"`
}

// WebdriverTrue reports whether navigator.webdriver is exactly true.
func (n Navigator) WebdriverTrue() bool {
	return n.Webdriver != nil && *n.Webdriver
}

type Screen struct {
	Width      int `json:"width"`
	Height     int `json:"height"`
	ColorDepth int `json:"colorDepth"`
}

type Window struct {
	OuterWidth      int  `json:"outerWidth"`
	OuterHeight     int  `json:"outerHeight"`
	HasNotification bool `json:"notification"`
}

// Frame is a nested browsing context. Callers must Close it.
type Frame interface {
	Webdriver() (*bool, error)
	Close() error
}

// Canvas is an off-screen 2D surface. Callers must Close it.
type Canvas interface {
	// Render draws the fixed test content.
	Render() error
	// Serialize returns the surface encoded as a data URL.
	Serialize() (string, error)
	Close() error
}

// WebGL is a rendering context. Callers must Close it.
type WebGL interface {
	UnmaskedVendor() (string, error)
	UnmaskedRenderer() (string, error)
	Close() error
}
