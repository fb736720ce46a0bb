package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/blobstore"
	"github.com/lehigh-university-libraries/snapcatalog/internal/catalogdb"
	"github.com/lehigh-university-libraries/snapcatalog/internal/handlers"
)

func newServeCmd(app *appContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog API and blob store server",
		Long: `Starts the catalog API (GET/POST /api/images) and the blob store
(PUT/GET /api/blobs/{key}) backed by a SQLite database and a blob directory.`,
		Example: `  # Start server on the configured address (default :8888)
  snapcatalog serve

  # Start server on a custom address
  snapcatalog serve --addr :3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.cfg.Server.Addr
			}

			db, err := catalogdb.Open(app.cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open catalog database: %w", err)
			}
			defer db.Close()

			blobs, err := blobstore.NewFileStore(app.cfg.Server.BlobDir)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.NewRouter(handlers.New(db, blobs)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Snapcatalog server available", "addr", addr, "db_path", app.cfg.Server.DBPath, "blob_dir", app.cfg.Server.BlobDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides server.addr)")

	return cmd
}
