package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/config"
	"github.com/lehigh-university-libraries/snapcatalog/internal/logging"
)

// appContext carries what every subcommand needs once flags are parsed.
type appContext struct {
	configPath string
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &appContext{}

	cmd := &cobra.Command{
		Use:   "snapcatalog",
		Short: "Capture photos, label them and keep a synced catalog",
		Long: `Snapcatalog captures a photo, labels it with a food name and calorie
estimate from an inference service (or a fixed fallback), uploads it to
blob storage and appends it to a catalog that stays in sync with a remote
system of record.

Run "snapcatalog serve" for the catalog API and blob store, then
"snapcatalog capture" to run the capture pipeline against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(app.configPath)
			if err != nil {
				return err
			}
			app.cfg = cfg

			return logging.Setup(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Writer: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", config.DefaultPath, "Path to YAML config file")

	cmd.AddCommand(
		newServeCmd(app),
		newCaptureCmd(app),
		newListCmd(app),
		newExportCmd(app),
		newImportCmd(app),
	)

	return cmd
}
