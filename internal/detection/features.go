package detection

// probeAutomationFeatures checks client hints, the plugins collection and
// signature globals of headless automation libraries.
func probeAutomationFeatures(env Environment) ProbeResult {
	var r ProbeResult

	nav, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
	} else {
		for _, brand := range nav.Brands {
			if _, ok := containsAny(brand, automationBrands); ok {
				r.Strong("Client hints brand " + brand + " identifies automation")
			}
		}
		switch {
		case nav.PluginsFrozen:
			r.Strong("navigator.plugins is frozen")
		case nav.PluginsSealed:
			r.Strong("navigator.plugins is sealed")
		}
	}

	globals, err := env.Globals()
	if err != nil {
		r.Weak(detectionError("window globals", err))
		return r
	}
	for _, lib := range libraryOrder {
		for _, g := range libraryGlobals[lib] {
			if present(globals, g) {
				r.Strong(lib + " signature global " + g + " detected")
				break
			}
		}
	}

	return r
}
