package detection

import "strings"

// probeWebdriverTampering looks for an automation flag that has been
// redefined to hide itself.
func probeWebdriverTampering(env Environment) ProbeResult {
	var r ProbeResult

	desc, err := env.WebdriverDescriptor()
	switch {
	case err != nil:
		r.Weak(detectionError("webdriver descriptor", err))
	case desc != nil:
		if desc.Accessor() {
			r.Strong("navigator.webdriver has a custom accessor")
		}
		if desc.Configurable {
			r.Strong("navigator.webdriver descriptor is configurable")
		}
		if !desc.Accessor() && !desc.Configurable {
			r.Weak("navigator.webdriver is an own property of navigator")
		}
	}

	src, err := env.WebdriverGetterSource()
	switch {
	case err != nil:
		r.Weak(detectionError("webdriver getter", err))
	case src != "" && !isNativeCode(src):
		if rewrittenGetter.MatchString(src) {
			r.Strong("webdriver getter rewritten to return a constant")
		} else {
			r.Weak("webdriver getter is not native code")
		}
	}

	top, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
		return r
	}
	inFrame, err := frameWebdriver(env)
	if inFrame != nil && *inFrame && !top.WebdriverTrue() {
		r.Strong("nested frame reports navigator.webdriver=true while top-level does not")
	}
	if err != nil {
		r.Weak(detectionError("nested frame", err))
	}

	return r
}

// frameWebdriver reads the flag from a fresh nested context and always
// tears the context down before returning.
func frameWebdriver(env Environment) (v *bool, err error) {
	frame, err := env.OpenFrame()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := frame.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return frame.Webdriver()
}

func isNativeCode(src string) bool {
	return strings.Contains(src, "[native code]")
}
