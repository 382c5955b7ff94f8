package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sportcast/backend/internal/auth"
	"github.com/sportcast/backend/internal/models"
)

var (
	tokenUserID string
	tokenName   string
	tokenRole   string
)

// tokenCmd mints a bearer token signed with JWT_SECRET, for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := uuid.New()
		if tokenUserID != "" {
			parsed, err := uuid.Parse(tokenUserID)
			if err != nil {
				return fmt.Errorf("invalid --user-id: %w", err)
			}
			id = parsed
		}
		token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours).Generate(id, tokenName, models.ParseRole(tokenRole))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "Dev User", "display name carried in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "broadcaster", "viewer, broadcaster or admin")
	rootCmd.AddCommand(tokenCmd)
}
