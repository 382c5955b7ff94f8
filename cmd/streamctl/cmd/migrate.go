package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sportcast/backend/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := database.Migrate(cmd.Context(), pool, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	},
}

var listMigrationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := database.Migrations()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(listMigrationsCmd)
	rootCmd.AddCommand(migrateCmd)
}
