// Package dedupe provides the command for collapsing duplicate records
// that share a trip code into a single canonical record.
package dedupe

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charterops/tripkeeper"
	"github.com/charterops/tripkeeper/internal/cmdapp"
)

// Flags holds flags for the dedupe command.
type Flags struct {
	All    bool
	DryRun bool
}

// NewCommand creates the dedupe command.
func NewCommand(app cmdapp.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe [trip-code...]",
		Short: "Collapse duplicate records sharing a trip code",
		Long: `Dedupe finds groups of records that share a trip code, elects the most
recently updated record in each group as canonical, and soft-deletes the
rest. Ties on the update timestamp fall back to creation time, then to
record ID, so repeated runs always elect the same canonical record.

With --dry-run the plan is computed and reported but nothing is deleted.`,
		Example: `  tripkeeper dedupe JZLHJF
  tripkeeper dedupe JZLHJF QMXRPT --dry-run
  tripkeeper dedupe --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := getFlags(cmd)

			if !flags.All && len(args) == 0 {
				return fmt.Errorf("at least one trip code or --all required")
			}
			if flags.All && len(args) > 0 {
				return fmt.Errorf("--all cannot be combined with explicit trip codes")
			}

			keeper, err := app.KeeperWithOptions(tripkeeper.WithDryRun(flags.DryRun))
			if err != nil {
				return err
			}
			defer func() { _ = keeper.Close() }()

			summary, err := keeper.Dedupe(cmd.Context(), args...)
			if err != nil {
				return err
			}

			return cmdapp.Render(os.Stdout, app.OutputFormat(), summary)
		},
	}

	cmd.Flags().Bool("all", false, "process every trip code in the datastore")
	cmd.Flags().Bool("dry-run", false, "compute the plan without deleting anything")

	return cmd
}

// getFlags extracts dedupe flags from a command.
func getFlags(cmd *cobra.Command) *Flags {
	all, _ := cmd.Flags().GetBool("all")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return &Flags{
		All:    all,
		DryRun: dryRun,
	}
}
