package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/engine"
	"greenroom/internal/logging"
	"greenroom/internal/notifications"
	"greenroom/internal/queue"
	"greenroom/internal/session"
	"greenroom/internal/uploader"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload pending recordings now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				timeout := time.Duration(cfg.Connectivity.ProbeTimeout) * time.Second
				probe := connectivity.HTTPProbe(cfg.Remote.BaseURL, timeout)
				if err := probe(cmd.Context()); err != nil {
					fmt.Fprintln(out, "Remote is unreachable; recordings stay queued")
					return nil
				}

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				_, cache, err := ctx.openCache()
				if err != nil {
					return err
				}

				gate := session.NewTokenGate(cfg, logger)
				if _, err := gate.Seed(session.CredentialsPath(cfg.Paths.DataDir)); err != nil {
					return err
				}

				eng := engine.New(
					cfg,
					store,
					cache,
					gate,
					uploader.NewHTTPUploader(cfg, gate, logger),
					connectivity.NewStaticMonitor(true),
					notifications.NewService(cfg),
					logger,
				)

				results := engine.Drain(cmd.Context(), eng)
				uploaded := 0
				for _, result := range results {
					switch {
					case result.Uploaded:
						uploaded++
					case result.NeedsReauth:
						fmt.Fprintln(out, "Session expired; run `greenroom login` and retry")
					case result.Done && result.JobID != "":
						fmt.Fprintf(out, "Upload %s failed: %s\n", result.JobID, result.Message)
					}
				}

				if uploaded == 0 {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					if stats[queue.StatusPending] == 0 && stats[queue.StatusFailed] == 0 {
						fmt.Fprintln(out, "Nothing to upload")
						return nil
					}
				}
				fmt.Fprintf(out, "Uploaded %d recordings\n", uploaded)
				return nil
			})
		},
	}
}
