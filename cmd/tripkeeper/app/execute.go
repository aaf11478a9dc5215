package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	dedupecmd "github.com/charterops/tripkeeper/cmd/tripkeeper/cmd/dedupe"
	inspectcmd "github.com/charterops/tripkeeper/cmd/tripkeeper/cmd/inspect"
	matchcmd "github.com/charterops/tripkeeper/cmd/tripkeeper/cmd/match"
	recovercmd "github.com/charterops/tripkeeper/cmd/tripkeeper/cmd/recover"
	"github.com/charterops/tripkeeper/pkg/logging"
)

// Execute runs the tripkeeper CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tripkeeper",
		Short:   "Charter marketplace record reconciliation",
		Version: a.version,
		Long: `Tripkeeper reconciles charter-marketplace records held in the local
datastore. Records ingested from the marketplace API become duplicated,
partially populated, or textually corrupted over time; tripkeeper collapses
duplicates sharing a trip code into a single canonical record, matches
inbound quotes and messages to local records by display name, and detects
and recovers corrupted message text.

Every automated mutation is recorded in an append-only audit trail that
preserves the pre-mutation value for forensic review.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.tripkeeper.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().StringVar(&a.config.DBPath, "db", "", "path to the records database")
	rootCmd.PersistentFlags().StringVar(&a.config.PolicyFile, "policy", "", "YAML file with recovery policy overrides")

	rootCmd.SetVersionTemplate("tripkeeper {{.Version}}\n")

	// Register all commands
	rootCmd.AddCommand(dedupecmd.NewCommand(a))
	rootCmd.AddCommand(recovercmd.NewCommand(a))
	rootCmd.AddCommand(matchcmd.NewCommand(a))
	rootCmd.AddCommand(inspectcmd.NewCommand(a))

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// Update config from parsed flags. These flags are defined as
	// persistent flags in createRootCommand, so errors indicate
	// programming errors.
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	// Reinitialize logger with updated config. The package default is
	// updated too so library code falls back to the configured logger.
	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't
// exist. This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag
// doesn't exist. This should only be used for flags defined in this
// package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
