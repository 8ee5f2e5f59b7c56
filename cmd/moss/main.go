package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mossforge/moss/pkg/log"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes, per spec.md §6.2.
const (
	exitSuccess           = 0
	exitUserError         = 1
	exitTransactionFailed = 2
	exitIntegrityFailed   = 3
	exitLockContention    = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "moss: %v\n", err)
		return exitCodeFor(err)
	}
	return exitSuccess
}

var rootCmd = &cobra.Command{
	Use:   "moss",
	Short: "moss manages packages on a rolling-release, stateless system",
	Long: `moss installs, removes, and rolls back packages by assembling
immutable, content-addressed /usr trees and exchanging them atomically.
Every mutation produces a new numbered state; nothing is ever edited in
place.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("root", "D", "/", "install root")
	rootCmd.PersistentFlags().Int("retention", 2, "number of past states sweep keeps beyond the active one")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs as JSON")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().MarkHidden("metrics-addr")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(completionsCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	asJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: asJSON})
}

func rootFlags(cmd *cobra.Command) (path string, retention int, metricsAddr string) {
	path, _ = cmd.Flags().GetString("root")
	retention, _ = cmd.Flags().GetInt("retention")
	metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	return
}
