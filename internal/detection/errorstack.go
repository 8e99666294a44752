package detection

// probeErrorStack inspects the stack of a deliberately raised error and the
// stack formatting hook for traces of driver-evaluated code.
func probeErrorStack(env Environment) ProbeResult {
	var r ProbeResult

	stack, err := env.RaiseError()
	if err != nil {
		r.Weak(detectionError("error stack", err))
	} else {
		if exe, ok := containsAny(stack, driverExecutables); ok {
			r.Strong("Error stack references driver executable " + exe)
		}
		if lib, ok := containsAny(stack, driverClientLibraries); ok {
			r.Strong("Error stack references WebDriver client " + lib)
		}
		if name := driverInjectionName.FindString(stack); name != "" {
			r.Strong("Error stack contains injected name " + name)
		}
	}

	src, overridden, err := env.StackHook()
	switch {
	case err != nil:
		r.Weak(detectionError("stack hook", err))
	case overridden:
		if tool, ok := containsAny(src, stackHookTooling); ok {
			r.Strong("Error.prepareStackTrace overridden with " + tool + " code")
		} else {
			r.Weak("Error.prepareStackTrace overridden")
		}
	}

	return r
}
