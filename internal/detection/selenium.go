package detection

// probeSelenium checks for the flag and the globals left by Selenium drivers.
func probeSelenium(env Environment) ProbeResult {
	var r ProbeResult

	nav, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
	} else if nav.WebdriverTrue() {
		r.Strong("navigator.webdriver present")
	}

	globals, gerr := env.Globals()
	if gerr != nil {
		r.Weak(detectionError("window globals", gerr))
	}
	doc, derr := env.Document()
	if derr != nil {
		r.Weak(detectionError("document properties", derr))
	}

	for _, marker := range seleniumMarkers {
		if present(doc, marker) || present(globals, marker) {
			r.Strong(marker + " detected")
		}
	}

	driverLike := func(name string) bool {
		_, ok := containsAny(name, seleniumDocumentSubstrings)
		return ok
	}
	for _, name := range matchNames(doc, false, driverLike) {
		r.Strong("document." + name + " matches a driver pattern")
	}

	return r
}
