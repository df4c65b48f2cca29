package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose    bool
	configPath string
)

// ErrProblemsFound is returned when analysis reported at least one
// error-severity finding. The process exits with status 2 so CI can tell
// findings apart from operational failures.
var ErrProblemsFound = errors.New("problems found")

var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Stevedore - static analysis for workflow manifests",
	Long: `Stevedore inspects workflow manifests before they ever reach a cluster.

It parses the template tags embedded in manifest fields, resolves every
reference against the scope it appears in, and reports unknown references
with a suggested fix, anchored to the exact line and column in the source.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: stevedore.toml in the working directory)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("stevedore {{.Version}}\n")
}
