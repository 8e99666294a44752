package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/collector"
	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/fingerprint"
)

type scanResult struct {
	URL    string                   `json:"url"`
	Result detection.Result         `json:"result"`
	Fonts  fingerprint.FontAnalysis `json:"fonts"`
}

func newScanCmd(a *app) *cobra.Command {
	opts := collector.DefaultOptions()
	headful := false

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Load a page in Chrome, collect a snapshot and evaluate it",
		Long: "scan drives a local Chrome over the DevTools protocol, runs the collector " +
			"in the page and reports what the engine sees. It is useful for checking " +
			"how a given automation setup is detected.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Headless = !headful
			if opts.ChromePath == "" {
				opts.ChromePath = a.cfg.ChromePath
			}
			snap, err := collector.New(opts, a.logger).Collect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := detection.NewDetector(a.logger).Evaluate(snap.Environment())
			a.logger.Info("scan complete",
				zap.String("url", args[0]),
				zap.Int("risk_score", res.RiskScore),
				zap.Bool("automated", res.IsAutomated),
			)

			out := scanResult{URL: args[0], Result: res}
			if snap.Navigator != nil {
				out.Fonts = fingerprint.AnalyzeFonts(snap.Fonts, snap.Navigator.Platform, snap.Navigator.UserAgent)
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printReport(cmd.OutOrStdout(), args[0], res)
			if out.Fonts.HasDiscrepancy {
				cmd.Println(warningColor("Fonts:"), out.Fonts.Explanation)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&headful, "headful", false, "show the browser window")
	f.BoolVar(&opts.Stealth, "stealth", false, "launch with common automation-hiding flags")
	f.StringVar(&opts.UserAgent, "user-agent", "", "override the browser user agent")
	f.StringVar(&opts.ChromePath, "chrome", "", "Chrome executable (default CHROME_PATH or system lookup)")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "page budget")
	f.DurationVar(&opts.SettleDelay, "settle", opts.SettleDelay, "wait after load before collecting")
	return cmd
}
