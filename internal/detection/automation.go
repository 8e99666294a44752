package detection

// probeGeneralAutomation covers geometry and framework globals that any
// automation stack may leave behind. Missing Battery and Notification APIs
// are common in hardened browsers and are only recorded.
func probeGeneralAutomation(env Environment) ProbeResult {
	var r ProbeResult

	screen, err := env.Screen()
	if err != nil {
		r.Weak(detectionError("screen", err))
	} else if screen.Width == 0 || screen.Height == 0 {
		r.Strong("Invalid screen dimensions")
	}

	win, err := env.Window()
	if err != nil {
		r.Weak(detectionError("window", err))
	} else {
		if !win.HasNotification {
			r.Weak("Notification API missing")
		}
		if win.OuterWidth == 0 || win.OuterHeight == 0 {
			r.Strong("Invalid window dimensions")
		}
	}

	nav, err := env.Navigator()
	if err != nil {
		r.Weak(detectionError("navigator", err))
	} else if !nav.HasBattery {
		r.Weak("Battery API missing (normal in modern browsers)")
	}

	globals, err := env.Globals()
	if err != nil {
		r.Weak(detectionError("window globals", err))
		return r
	}
	if anyPresent(globals, domAutomationGlobals) {
		r.Strong("DOM automation detected")
	}
	if anyPresent(globals, testRunnerGlobals) {
		r.Strong("Cypress test runner detected")
	}
	if anyPresent(globals, protocolMarkerGlobals) {
		r.Strong("Playwright automation marker detected")
	}

	return r
}

func anyPresent(b PropertyBag, names []string) bool {
	for _, n := range names {
		if present(b, n) {
			return true
		}
	}
	return false
}
