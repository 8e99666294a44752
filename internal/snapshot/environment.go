package snapshot

import (
	"github.com/shortontech/goblade/internal/detection"
)

// Env adapts a Snapshot to detection.Environment. It is safe for concurrent
// evaluations of the same snapshot.
type Env struct {
	s *Snapshot
}

var _ detection.Environment = Env{}

// Environment returns the probe view of s.
func (s *Snapshot) Environment() Env {
	return Env{s: s}
}

func (e Env) Navigator() (detection.Navigator, error) {
	if err := e.s.fail(SectionNavigator, e.s.Navigator != nil); err != nil {
		return detection.Navigator{}, err
	}
	return e.s.Navigator.Navigator, nil
}

func (e Env) Screen() (detection.Screen, error) {
	if err := e.s.fail(SectionScreen, e.s.Screen != nil); err != nil {
		return detection.Screen{}, err
	}
	return *e.s.Screen, nil
}

func (e Env) Window() (detection.Window, error) {
	if err := e.s.fail(SectionWindow, e.s.Window != nil); err != nil {
		return detection.Window{}, err
	}
	return *e.s.Window, nil
}

func (e Env) Globals() (detection.PropertyBag, error) {
	if err := e.s.fail(SectionGlobals, e.s.Globals != nil); err != nil {
		return nil, err
	}
	return detection.Bag(e.s.Globals), nil
}

func (e Env) Document() (detection.PropertyBag, error) {
	if err := e.s.fail(SectionDocument, e.s.Document != nil); err != nil {
		return nil, err
	}
	return detection.Bag(e.s.Document), nil
}

func (e Env) WebdriverDescriptor() (*detection.Descriptor, error) {
	if err := e.s.reported(SectionWebdriver); err != nil {
		return nil, err
	}
	if err := e.s.fail(SectionWebdriverDesc, e.s.Webdriver != nil); err != nil {
		return nil, err
	}
	return e.s.Webdriver.Descriptor, nil
}

func (e Env) WebdriverGetterSource() (string, error) {
	if err := e.s.reported(SectionWebdriver); err != nil {
		return "", err
	}
	if err := e.s.fail(SectionWebdriverGetter, e.s.Webdriver != nil); err != nil {
		return "", err
	}
	return e.s.Webdriver.GetterSource, nil
}

func (e Env) OpenFrame() (detection.Frame, error) {
	if err := e.s.fail(SectionFrame, e.s.Frame != nil); err != nil {
		return nil, err
	}
	e.s.handles.opened.Add(1)
	return &frame{handle: handle{s: e.s}, webdriver: e.s.Frame.Webdriver}, nil
}

func (e Env) RaiseError() (string, error) {
	if err := e.s.fail(SectionErrorStack, e.s.ErrorStack != nil); err != nil {
		return "", err
	}
	return *e.s.ErrorStack, nil
}

func (e Env) StackHook() (string, bool, error) {
	if err := e.s.fail(SectionStackHook, e.s.StackHook != nil); err != nil {
		return "", false, err
	}
	return e.s.StackHook.Source, e.s.StackHook.Overridden, nil
}

func (e Env) OpenCanvas() (detection.Canvas, error) {
	if err := e.s.fail(SectionCanvas, e.s.Canvas != nil); err != nil {
		return nil, err
	}
	e.s.handles.opened.Add(1)
	return &canvas{handle: handle{s: e.s}, data: e.s.Canvas.DataURL}, nil
}

// OpenWebGL returns detection.ErrWebGLUnsupported when the collector could
// not create a context.
func (e Env) OpenWebGL() (detection.WebGL, error) {
	if err := e.s.fail(SectionWebGL, e.s.WebGL != nil); err != nil {
		return nil, err
	}
	if !e.s.WebGL.Supported {
		return nil, detection.ErrWebGLUnsupported
	}
	e.s.handles.opened.Add(1)
	return &webgl{handle: handle{s: e.s}, vendor: e.s.WebGL.Vendor, renderer: e.s.WebGL.Renderer}, nil
}

// handle counts its first Close against the owning snapshot.
type handle struct {
	s      *Snapshot
	closed bool
}

func (h *handle) Close() error {
	if !h.closed {
		h.closed = true
		h.s.handles.closed.Add(1)
	}
	return nil
}

type frame struct {
	handle
	webdriver *bool
}

func (f *frame) Webdriver() (*bool, error) { return f.webdriver, nil }

type canvas struct {
	handle
	data string
}

func (c *canvas) Render() error {
	return c.s.fail(SectionCanvasRender, true)
}

func (c *canvas) Serialize() (string, error) { return c.data, nil }

type webgl struct {
	handle
	vendor, renderer string
}

func (g *webgl) UnmaskedVendor() (string, error)   { return g.vendor, nil }
func (g *webgl) UnmaskedRenderer() (string, error) { return g.renderer, nil }
