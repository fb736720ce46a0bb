package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/export"
)

func newImportCmd(app *appContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Import catalog entries from a Parquet export",
		Example: `  snapcatalog import --file exports/catalog.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}

			entries, err := export.LoadParquet(file)
			if err != nil {
				return err
			}

			remote, closeRemote, err := app.openCatalog()
			if err != nil {
				return err
			}
			defer closeRemote()

			result, err := export.Import(cmd.Context(), remote, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d skipped)\n", result.Created, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Parquet file written by export")

	return cmd
}
