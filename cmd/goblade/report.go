package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/shortontech/goblade/internal/detection"
)

var (
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func verdict(res detection.Result) string {
	switch {
	case res.IsAutomated && res.IsStealthBot:
		return alertColor("AUTOMATED (stealth)")
	case res.IsAutomated:
		return alertColor("AUTOMATED")
	case len(res.DetectedIndicators) > 0:
		return warningColor("SUSPICIOUS")
	default:
		return successColor("HUMAN")
	}
}

func flag(b bool) string {
	if b {
		return warningColor("yes")
	}
	return "no"
}

func printReport(w io.Writer, target string, res detection.Result) {
	if target != "" {
		fmt.Fprintf(w, "%s %s\n", infoColor("Target:"), target)
	}
	fmt.Fprintf(w, "%s %s  risk %d/100\n", infoColor("Verdict:"), verdict(res), res.RiskScore)
	fmt.Fprintf(w, "  headless   %s\n", flag(res.IsHeadless))
	fmt.Fprintf(w, "  selenium   %s\n", flag(res.IsSelenium))
	fmt.Fprintf(w, "  phantomjs  %s\n", flag(res.IsPhantomJS))
	fmt.Fprintf(w, "  stealth    %s\n", flag(res.IsStealthBot))

	if len(res.DetectionMethods) > 0 {
		fmt.Fprintf(w, "%s\n", infoColor("Methods:"))
		for _, m := range res.DetectionMethods {
			fmt.Fprintf(w, "  - %s\n", m)
		}
	}
	if len(res.DetectedIndicators) > 0 {
		fmt.Fprintf(w, "%s\n", infoColor("Indicators:"))
		for _, ind := range res.DetectedIndicators {
			fmt.Fprintf(w, "  - %s\n", ind)
		}
	}
}
