package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/export"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

func newExportCmd(app *appContext) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog to YAML or Parquet",
		Example: `  snapcatalog export --format yaml --output exports/catalog.yaml
  snapcatalog export --format parquet --output exports/catalog.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "catalog." + format
			}

			items, err := app.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "yaml":
				err = export.SaveYAML(output, items)
			case "parquet":
				entries := make([]models.CatalogEntry, len(items))
				for i, item := range items {
					entries[i] = item.Entry
				}
				err = export.SaveParquet(output, entries)
			default:
				return fmt.Errorf("unsupported format: %s (supported: yaml, parquet)", format)
			}
			if err != nil {
				return err
			}

			absPath, _ := filepath.Abs(output)
			slog.Info("Catalog exported", "format", format, "entries", len(items), "path", absPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(items), absPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Export format: yaml or parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default catalog.<format>)")

	return cmd
}
