package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sportcast/backend/internal/analytics"
)

var reconcileNow bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <stream-id>",
	Short: "Repair a stream's analytics rollups",
	Long:  "Enqueues an analytics reconcile job for the worker, or with --now recomputes the rollups directly against the database and prints them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid stream id %q: %w", args[0], err)
		}
		ctx := cmd.Context()

		if !reconcileNow {
			q, closeQueue, err := openQueue(ctx)
			if err != nil {
				return err
			}
			defer closeQueue()
			if err := q.EnqueueReconcile(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconcile queued for %s\n", id)
			return nil
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		stats, err := analytics.NewAggregator(analytics.NewRepository(pool), logger).Reconcile(ctx, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileNow, "now", false, "reconcile synchronously instead of enqueueing a job")
	rootCmd.AddCommand(reconcileCmd)
}
