// Command token-generator mints bearer tokens for local development using
// the configured JWT secret.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/service/auth"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		userID string
		role   string
	)
	cmd := &cobra.Command{
		Use:          "token-generator",
		Short:        "Mint a development bearer token",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}
			if !domain.Role(role).Valid() {
				return fmt.Errorf("invalid --role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), id, domain.Role(role))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\nrole: %s\ntoken: %s\n", id, role, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID to embed (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "Role to embed (member or admin)")
	return cmd
}
