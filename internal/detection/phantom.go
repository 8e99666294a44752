package detection

import "strings"

func probePhantomJS(env Environment) ProbeResult {
	var r ProbeResult

	globals, err := env.Globals()
	if err != nil {
		r.Weak(detectionError("window globals", err))
	} else {
		for _, g := range phantomGlobals {
			if present(globals, g) {
				r.Strong("PhantomJS global " + g + " detected")
			}
		}
	}

	nav, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
	} else if strings.Contains(nav.UserAgent, "PhantomJS") {
		r.Strong("PhantomJS in user agent")
	}

	return r
}
