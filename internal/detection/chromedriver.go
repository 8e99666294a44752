package detection

// probeChromeDriverArtifacts scans window and document for keys injected by
// ChromeDriver and other DevTools-protocol drivers.
func probeChromeDriverArtifacts(env Environment) ProbeResult {
	var r ProbeResult

	doc, derr := env.Document()
	if derr != nil {
		r.Weak(detectionError("document properties", derr))
	}
	globals, gerr := env.Globals()
	if gerr != nil {
		r.Weak(detectionError("window globals", gerr))
	}

	for _, name := range matchNames(doc, true, driverPropertyPrefix.MatchString) {
		r.Strong("document." + name + " injected by driver")
	}
	for _, name := range matchNames(globals, true, driverPropertyPrefix.MatchString) {
		r.Strong("window." + name + " injected by driver")
	}

	for _, g := range cdpArtifactGlobals {
		if present(globals, g) || present(doc, g) {
			r.Strong("CDP session artifact " + g + " detected")
		}
	}

	return r
}
