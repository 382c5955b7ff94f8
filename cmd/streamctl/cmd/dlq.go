package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var dlqLimit int64

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect or requeue dead-lettered jobs",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show dead-lettered jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeQueue, err := openQueue(cmd.Context())
		if err != nil {
			return err
		}
		defer closeQueue()

		jobs, err := q.DeadLetters(cmd.Context(), dlqLimit)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "dead-letter list is empty")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tATTEMPTS\tCREATED\tLAST ERROR")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", j.ID, j.Type, j.Attempt, j.CreatedAt.Format(time.RFC3339), j.LastError)
		}
		return w.Flush()
	},
}

var dlqRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move every dead-lettered job back to the work queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeQueue, err := openQueue(cmd.Context())
		if err != nil {
			return err
		}
		defer closeQueue()

		n, err := q.RequeueDeadLetters(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s)\n", n)
		return nil
	},
}

func init() {
	dlqListCmd.Flags().Int64Var(&dlqLimit, "limit", 100, "maximum jobs to show")
	dlqCmd.AddCommand(dlqListCmd, dlqRequeueCmd)
	rootCmd.AddCommand(dlqCmd)
}
