package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/observability"
	"github.com/shortontech/goblade/pkg/config"
)

// app holds what the subcommands share once the root pre-run has loaded it.
type app struct {
	cfgFile string
	jsonOut bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "goblade",
		Short:         "goblade detects headless and automated browsers from environment snapshots.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default $"+config.FileEnv+")")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print raw JSON instead of a report")

	root.AddCommand(newServeCmd(a), newScanCmd(a), newEvaluateCmd(a))
	return root
}

func (a *app) load() error {
	path := a.cfgFile
	if path == "" {
		path = os.Getenv(config.FileEnv)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.InitializeLogger(observability.FromConfig(cfg))
	return nil
}
