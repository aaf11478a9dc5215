// Package match provides the command for matching an inbound display
// name against local records.
package match

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/charterops/tripkeeper/internal/cmdapp"
	"github.com/charterops/tripkeeper/pkg/records"
)

// NewCommand creates the match command.
func NewCommand(app cmdapp.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <display-name>",
		Short: "Find the local record best matching a display name",
		Long: `Match compares an inbound display name against the display names of
local records and reports the best candidate. Names are lowercased and
stripped of diacritics before comparison; candidates are ranked by the
number of significant tokens they share with the inbound name.

An explicit unmatched result is reported when no candidate qualifies.`,
		Example: `  tripkeeper match "Panorama Jets"
  tripkeeper match "Dominion Aviation" --kind request`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")

			keeper, err := app.Keeper()
			if err != nil {
				return err
			}

			result, err := keeper.Match(cmd.Context(), args[0], records.Filter{
				Kind: records.Kind(kind),
			})
			if err != nil {
				return err
			}

			return cmdapp.Render(os.Stdout, app.OutputFormat(), result)
		},
	}

	cmd.Flags().String("kind", "", "restrict candidates to one record kind: request, message")

	return cmd
}
