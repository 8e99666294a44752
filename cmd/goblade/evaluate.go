package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/snapshot"
)

const maxSnapshotBytes = 16 << 20

func newEvaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <snapshot.json|->",
		Short: "Evaluate a saved environment snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open snapshot: %w", err)
				}
				defer f.Close()
				r = f
			}
			snap, err := snapshot.Read(r, maxSnapshotBytes)
			if err != nil {
				return err
			}
			res := detection.NewDetector(a.logger).Evaluate(snap.Environment())
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printReport(cmd.OutOrStdout(), "", res)
			return nil
		},
	}
}
