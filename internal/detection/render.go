package detection

import (
	"errors"
	"fmt"
)

// probeCanvas renders the fixed test content and flags output too small to
// contain it.
func probeCanvas(env Environment) (r ProbeResult) {
	canvas, err := env.OpenCanvas()
	if err != nil {
		r.Weak(detectionError("canvas", err))
		return r
	}
	defer func() {
		if err := canvas.Close(); err != nil {
			r.Weak(detectionError("canvas teardown", err))
		}
	}()

	if err := canvas.Render(); err != nil {
		r.Weak(detectionError("canvas render", err))
		return r
	}
	data, err := canvas.Serialize()
	if err != nil {
		r.Weak(detectionError("canvas serialize", err))
		return r
	}
	if len(data) < minCanvasDataLength {
		r.Strong(fmt.Sprintf("Canvas output too small (%d bytes)", len(data)))
	}
	return r
}

// probeWebGL flags a missing WebGL context or a software rasteriser.
func probeWebGL(env Environment) (r ProbeResult) {
	gl, err := env.OpenWebGL()
	if errors.Is(err, ErrWebGLUnsupported) {
		r.Strong("WebGL context unavailable")
		return r
	}
	if err != nil {
		r.Weak(detectionError("webgl", err))
		return r
	}
	defer func() {
		if err := gl.Close(); err != nil {
			r.Weak(detectionError("webgl teardown", err))
		}
	}()

	renderer, err := gl.UnmaskedRenderer()
	if err != nil {
		r.Weak(detectionError("webgl renderer", err))
		return r
	}
	if !softwareRenderers.MatchString(renderer) {
		return r
	}
	indicator := "Software WebGL renderer: " + renderer
	if vendor, err := gl.UnmaskedVendor(); err == nil && vendor != "" {
		indicator += " (" + vendor + ")"
	}
	r.Strong(indicator)
	return r
}
