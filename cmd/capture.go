package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcatalog/internal/capture"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/permissions"
	"github.com/lehigh-university-libraries/snapcatalog/internal/pipeline"
	"github.com/lehigh-university-libraries/snapcatalog/internal/prediction"
	"github.com/lehigh-university-libraries/snapcatalog/internal/share"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

// cliObserver prints surfaced errors and debug-logs transitions.
type cliObserver struct {
	out io.Writer
}

func (o *cliObserver) OnTransition(t pipeline.Transition) {
	slog.Debug("Pipeline transition", "capture_id", t.CaptureID, "event", t.Event.String(), "from", t.From.String(), "to", t.To.String())
}

func (o *cliObserver) OnError(kind pipeline.ErrorKind, err error) {
	fmt.Fprintf(o.out, "Error (%s): %v\n", kind, err)
}

func parseDismissal(s string) (pipeline.Dismissal, error) {
	switch s {
	case "discard", "":
		return pipeline.Discard, nil
	case "share":
		return pipeline.Share, nil
	case "save":
		return pipeline.Save, nil
	default:
		return pipeline.Discard, fmt.Errorf("unsupported action: %s (supported: share, save, discard)", s)
	}
}

func newCaptureCmd(app *appContext) *cobra.Command {
	var (
		file        string
		snapshotURL string
		then        string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a photo, label it and add it to the catalog",
		Example: `  # Catalog an existing photo
  snapcatalog capture --file lunch.jpg

  # Grab a frame from a network camera and save it to the library
  snapcatalog capture --snapshot-url http://camera.local/snapshot.jpg --then save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			if snapshotURL == "" {
				snapshotURL = cfg.Capture.SnapshotURL
			}

			var device capture.Device
			switch {
			case file != "":
				device = &capture.FileDevice{Path: file}
			case snapshotURL != "":
				device = capture.NewSnapshotDevice(snapshotURL, cfg.Capture.SpoolDir)
			default:
				return errors.New("either --file or --snapshot-url is required")
			}

			dismissal, err := parseDismissal(then)
			if err != nil {
				return err
			}
			policy, err := pipeline.ParsePolicy(cfg.Policy)
			if err != nil {
				return err
			}

			remote, closeRemote, err := app.openCatalog()
			if err != nil {
				return err
			}
			defer closeRemote()

			blobs, err := app.openBlobStore()
			if err != nil {
				return err
			}

			predictor, err := prediction.NewClient(cfg.Prediction.Provider, cfg.Prediction.Endpoint, cfg.Prediction.Model, cfg.Prediction.Timeout)
			if err != nil {
				return err
			}

			gate := permissions.NewGate(permissions.FromConfig(cfg.Permissions, cmd.InOrStdin(), cmd.ErrOrStderr()))
			camera := capture.NewController(device, func() models.PermissionState {
				return gate.Current().Camera
			})
			store := storage.New(remote)

			p, err := pipeline.New(pipeline.Deps{
				Permissions: gate,
				Camera:      camera,
				Uploader:    app.newUploader(blobs),
				Predictor:   predictor,
				Catalog:     store,
				Library:     share.New(cfg.Library.SaveDir, cfg.Library.ShareDir),
			}, pipeline.Options{
				Capture: models.CaptureOptions{
					Quality:         cfg.Capture.Quality,
					IncludeRawBytes: cfg.Capture.IncludeRawBytes,
				},
				CommitTimeout: cfg.CommitTimeout,
				Policy:        policy,
				Observer:      &cliObserver{out: cmd.ErrOrStderr()},
			})
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()
			if err := p.Start(ctx); err != nil {
				return err
			}

			photo, err := p.Capture(ctx)
			if err != nil {
				return err
			}

			waitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := p.Await(waitCtx, pipeline.Committed); err != nil {
				_ = p.Dismiss(pipeline.Discard)
				return err
			}

			if err := p.Dismiss(dismissal); err != nil {
				return err
			}
			p.Wait()

			item, ok := store.Get(photo.Key())
			if !ok {
				return fmt.Errorf("entry %s missing from catalog", photo.Key())
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCatalog([]storage.Item{item}))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Image file to catalog")
	cmd.Flags().StringVar(&snapshotURL, "snapshot-url", "", "Network camera snapshot URL (overrides capture.snapshot_url)")
	cmd.Flags().StringVar(&then, "then", "discard", "Action after cataloging: share, save or discard")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum time to wait for upload and prediction")

	return cmd
}
