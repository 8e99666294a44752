package detection

import (
	"errors"
	"strings"
)

// fakeEnv is a configurable Environment. The zero value after genuine()
// looks like an ordinary desktop Chrome.
type fakeEnv struct {
	nav    Navigator
	navErr error
	screen Screen
	win    Window

	globals Bag
	doc     Bag

	webdriverDesc *Descriptor
	getterSource  string

	frameWebdriver *bool
	frameErr       error
	framesOpened   int
	framesClosed   int

	stack        string
	hookSource   string
	hookReplaced bool

	canvasData    string
	canvasErr     error
	canvasOpened  int
	canvasClosed  int
	webglErr      error
	renderer      string
	vendor        string
	webglOpened   int
	webglClosed   int
	panicOnScreen bool
}

func boolPtr(b bool) *bool { return &b }

func genuine() *fakeEnv {
	rtt := 50.0
	return &fakeEnv{
		nav: Navigator{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			Webdriver:      boolPtr(false),
			PluginCount:    5,
			Languages:      []string{"en-US", "en"},
			HasPermissions: true,
			HasBattery:     true,
			ConnectionRTT:  &rtt,
			Brands:         []string{"Chromium", "Google Chrome", "Not-A.Brand"},
		},
		screen: Screen{Width: 1920, Height: 1080, ColorDepth: 24},
		win:    Window{OuterWidth: 1920, OuterHeight: 1040, HasNotification: true},
		globals: Bag{
			{Name: "chrome", Type: "object", Truthy: true, Descriptor: Descriptor{Enumerable: true, Configurable: true, Writable: true}},
			{Name: "document", Type: "object", Truthy: true, Descriptor: Descriptor{Enumerable: true}},
		},
		doc: Bag{
			{Name: "location", Type: "object", Truthy: true, Descriptor: Descriptor{Enumerable: true}},
		},
		getterSource:   "function get webdriver() { [native code] }",
		frameWebdriver: boolPtr(false),
		stack:          "Error: probe\n    at https://example.com/app.js:10:5",
		hookSource:     "",
		canvasData:     "data:image/png;base64," + strings.Repeat("iVBORw0KGgo", 300),
		renderer:       "ANGLE (NVIDIA, NVIDIA GeForce RTX 3070 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		vendor:         "Google Inc. (NVIDIA)",
	}
}

func (f *fakeEnv) Navigator() (Navigator, error) { return f.nav, f.navErr }

func (f *fakeEnv) Screen() (Screen, error) {
	if f.panicOnScreen {
		panic("screen exploded")
	}
	return f.screen, nil
}

func (f *fakeEnv) Window() (Window, error)                   { return f.win, nil }
func (f *fakeEnv) Globals() (PropertyBag, error)             { return f.globals, nil }
func (f *fakeEnv) Document() (PropertyBag, error)            { return f.doc, nil }
func (f *fakeEnv) WebdriverDescriptor() (*Descriptor, error) { return f.webdriverDesc, nil }
func (f *fakeEnv) WebdriverGetterSource() (string, error)    { return f.getterSource, nil }
func (f *fakeEnv) RaiseError() (string, error)               { return f.stack, nil }

func (f *fakeEnv) StackHook() (string, bool, error) {
	return f.hookSource, f.hookReplaced, nil
}

func (f *fakeEnv) OpenFrame() (Frame, error) {
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	f.framesOpened++
	return &fakeFrame{env: f}, nil
}

func (f *fakeEnv) OpenCanvas() (Canvas, error) {
	if f.canvasErr != nil {
		return nil, f.canvasErr
	}
	f.canvasOpened++
	return &fakeCanvas{env: f}, nil
}

func (f *fakeEnv) OpenWebGL() (WebGL, error) {
	if f.webglErr != nil {
		return nil, f.webglErr
	}
	f.webglOpened++
	return &fakeWebGL{env: f}, nil
}

func (f *fakeEnv) addGlobal(name string) {
	f.globals = append(f.globals, Property{Name: name, Type: "object", Truthy: true, Descriptor: Descriptor{Enumerable: true}})
}

func (f *fakeEnv) addDocument(name string) {
	f.doc = append(f.doc, Property{Name: name, Type: "object", Truthy: true, Descriptor: Descriptor{Enumerable: true}})
}

type fakeFrame struct{ env *fakeEnv }

func (fr *fakeFrame) Webdriver() (*bool, error) { return fr.env.frameWebdriver, nil }
func (fr *fakeFrame) Close() error              { fr.env.framesClosed++; return nil }

type fakeCanvas struct{ env *fakeEnv }

func (c *fakeCanvas) Render() error              { return nil }
func (c *fakeCanvas) Serialize() (string, error) { return c.env.canvasData, nil }
func (c *fakeCanvas) Close() error               { c.env.canvasClosed++; return nil }

type fakeWebGL struct{ env *fakeEnv }

func (g *fakeWebGL) UnmaskedVendor() (string, error)   { return g.env.vendor, nil }
func (g *fakeWebGL) UnmaskedRenderer() (string, error) { return g.env.renderer, nil }
func (g *fakeWebGL) Close() error                      { g.env.webglClosed++; return nil }

var errBroken = errors.New("broken accessor")
