package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/summary"
)

func newListCmd(app *appContext) *cobra.Command {
	var showSummary bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Example: `  # List the catalog
  snapcatalog list

  # Include label and calorie statistics
  snapcatalog list --summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			fmt.Fprint(out, renderCatalog(items))

			if showSummary {
				fmt.Fprint(out, renderSummary(summary.Calculate(items)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showSummary, "summary", "s", false, "Print catalog statistics")

	return cmd
}
