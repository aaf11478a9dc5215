// Package recover provides the command for detecting and repairing
// rotation-corrupted text fields.
package recover

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/charterops/tripkeeper/internal/cmdapp"
	"github.com/charterops/tripkeeper/pkg/records"
	"github.com/charterops/tripkeeper/pkg/recovery"
)

// Flags holds flags for the recover command.
type Flags struct {
	Fix    bool
	Force  bool
	Fields []string
	Kind   string
}

// NewCommand creates the recover command.
func NewCommand(app cmdapp.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover [trip-code...]",
		Short: "Detect and repair rotation-corrupted text fields",
		Long: `Recover scans text fields for alphabet-rotation corruption, searches
every rotation for the one that yields recognizable text, and reports
what it found. With --fix the best recovery is written back and the
original text is preserved in the record's audit trail. Fields that
cannot be recovered with confidence are replaced with a placeholder
rather than left garbled.

Fields that already carry a recovery audit entry are skipped unless
--force is given. Trip codes restrict the scan to matching records;
with no arguments every record is scanned.`,
		Example: `  tripkeeper recover
  tripkeeper recover --fix
  tripkeeper recover JZLHJF --fix --field body
  tripkeeper recover --fix --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := getFlags(cmd)

			keeper, err := app.Keeper()
			if err != nil {
				return err
			}

			filter := records.Filter{
				Kind:        records.Kind(flags.Kind),
				NaturalKeys: args,
			}

			opts := []recovery.RunnerOption{
				recovery.WithFix(flags.Fix),
				recovery.WithForce(flags.Force),
			}
			if len(flags.Fields) > 0 {
				opts = append(opts, recovery.WithFields(flags.Fields...))
			}

			summary, err := keeper.Recover(cmd.Context(), filter, opts...)
			if err != nil {
				return err
			}

			return cmdapp.Render(os.Stdout, app.OutputFormat(), summary)
		},
	}

	cmd.Flags().Bool("fix", false, "write recovered text back to the datastore")
	cmd.Flags().Bool("force", false, "re-process fields that already carry a recovery audit entry")
	cmd.Flags().StringSlice("field", nil, "restrict the scan to the named text fields")
	cmd.Flags().String("kind", "", "restrict the scan to one record kind: request, message")

	return cmd
}

// getFlags extracts recover flags from a command.
func getFlags(cmd *cobra.Command) *Flags {
	fix, _ := cmd.Flags().GetBool("fix")
	force, _ := cmd.Flags().GetBool("force")
	fields, _ := cmd.Flags().GetStringSlice("field")
	kind, _ := cmd.Flags().GetString("kind")

	return &Flags{
		Fix:    fix,
		Force:  force,
		Fields: fields,
		Kind:   kind,
	}
}
