// Package inspect provides the command for dumping the records and audit
// history behind a trip code.
package inspect

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charterops/tripkeeper/internal/cmdapp"
	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Report is the inspect output for one trip code.
type Report struct {
	NaturalKey string           `json:"natural_key" yaml:"natural_key"`
	Records    []records.Record `json:"records" yaml:"records"`
}

// String renders the report for human consumption.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d record(s)\n", r.NaturalKey, len(r.Records))
	for _, rec := range r.Records {
		status := "active"
		if rec.Deleted {
			status = "deleted"
		}
		fmt.Fprintf(&b, "  %s [%s] %s %q updated=%s\n",
			rec.ID, status, rec.Kind, rec.DisplayName, rec.EffectiveTime().Format("2006-01-02T15:04:05Z"))
		for _, entry := range rec.Audit {
			fmt.Fprintf(&b, "    audit %s action=%s field=%s at=%s\n",
				entry.RunID, entry.Action, entry.Field, entry.At.Format("2006-01-02T15:04:05Z"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewCommand creates the inspect command.
func NewCommand(app cmdapp.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <trip-code>",
		Short: "Dump the records and audit history behind a trip code",
		Long: `Inspect lists every record stored under a trip code, including
soft-deleted ones, together with each record's audit trail. Use it to
review what dedupe and recover runs did to a group before and after
the fact.`,
		Example: `  tripkeeper inspect JZLHJF
  tripkeeper inspect JZLHJF -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keeper, err := app.Keeper()
			if err != nil {
				return err
			}

			recs, err := keeper.Store().All(cmd.Context(), records.Filter{
				NaturalKeys:    []string{args[0]},
				IncludeDeleted: true,
			})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				cmd.SilenceUsage = true
				return &errors.NotFoundError{Resource: "trip code", ID: args[0]}
			}

			return cmdapp.Render(os.Stdout, app.OutputFormat(), Report{
				NaturalKey: args[0],
				Records:    recs,
			})
		},
	}

	return cmd
}
