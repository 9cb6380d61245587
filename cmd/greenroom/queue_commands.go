package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"greenroom/internal/config"
	"greenroom/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upload jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, statusStr := range listStatuses {
				status, ok := queue.ParseStatus(statusStr)
				if !ok {
					return fmt.Errorf("unknown status %q", statusStr)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						job.Snapshot.Title,
						string(job.Status),
						fmt.Sprintf("%d", job.AttemptCount),
						job.CreatedAt.Local().Format(time.DateTime),
						job.LastError,
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Attempts", "Created", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Return failed jobs to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				updated, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", updated)
				if updated > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Run `greenroom sync` to upload now")
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearFailed && clearAll {
				return errors.New("specify only one of --failed or --all")
			}
			if !clearFailed && !clearAll {
				return errors.New("specify --failed or --all")
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if clearFailed {
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
					return nil
				}
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d queue jobs\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every job regardless of status")
	return cmd
}
