package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/queue"
	"greenroom/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue, cache, and connectivity status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				state, err := store.LoadState(cmd.Context())
				if err != nil {
					return err
				}

				pending := stats[queue.StatusPending]
				failed := stats[queue.StatusFailed]
				queueKind := statusOK
				queueMsg := "empty"
				switch {
				case failed > 0:
					queueKind = statusWarn
					queueMsg = fmt.Sprintf("%d pending, %d failed", pending, failed)
				case pending > 0:
					queueKind = statusInfo
					queueMsg = fmt.Sprintf("%d pending", pending)
				}
				fmt.Fprintln(out, renderStatusLine("Queue", queueKind, queueMsg, colorize))

				onlineKind, onlineMsg := probeStatus(cmd, cfg)
				fmt.Fprintln(out, renderStatusLine("Remote", onlineKind, onlineMsg, colorize))

				sessionKind, sessionMsg := sessionStatus(cfg)
				fmt.Fprintln(out, renderStatusLine("Session", sessionKind, sessionMsg, colorize))

				_, cache, err := ctx.openCache()
				if err != nil {
					return err
				}
				cacheStats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Cache", statusInfo, fmt.Sprintf(
					"%d recordings, %s of %s",
					cacheStats.Entries,
					humanize.IBytes(uint64(cacheStats.TotalBytes)),
					humanize.IBytes(uint64(cacheStats.CapacityBytes)),
				), colorize))

				fmt.Fprintln(out, renderStatusLine("Last sync", statusInfo, formatSyncTime(state.LastSync), colorize))
				fmt.Fprintln(out, renderStatusLine("Last success", statusInfo, formatSyncTime(state.LastSuccessfulSync), colorize))
				return nil
			})
		},
	}
}

func probeStatus(cmd *cobra.Command, cfg *config.Config) (statusKind, string) {
	timeout := time.Duration(cfg.Connectivity.ProbeTimeout) * time.Second
	probe := connectivity.HTTPProbe(cfg.Remote.BaseURL, timeout)
	if err := probe(cmd.Context()); err != nil {
		return statusWarn, "unreachable"
	}
	return statusOK, "reachable"
}

func sessionStatus(cfg *config.Config) (statusKind, string) {
	creds, ok, err := session.LoadCredentials(session.CredentialsPath(cfg.Paths.DataDir))
	if err != nil {
		return statusError, err.Error()
	}
	if !ok || creds.Token == "" {
		return statusWarn, "not logged in"
	}
	if !creds.ExpiresAt.IsZero() && !creds.ExpiresAt.After(time.Now().UTC()) {
		return statusWarn, "token expired"
	}
	return statusOK, "logged in"
}

func formatSyncTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return "never"
	}
	return value.Local().Format(time.DateTime)
}
