package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "reclaim states and blobs beyond the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, retention, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, retention, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		eng, err := e.engine()
		if err != nil {
			return err
		}

		removedStates, removedBlobs, err := eng.Sweep()
		if err != nil {
			return err
		}
		fmt.Printf("swept %d state(s) and %d blob(s)\n", removedStates, removedBlobs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
