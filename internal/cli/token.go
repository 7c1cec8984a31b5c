package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"typologylab/internal/config"
	"typologylab/internal/domain"
	"typologylab/internal/identity"
)

// NewTokenCmd issues a user token signed with auth.jwt_secret, for local testing and support.
func NewTokenCmd(configPath *string) *cobra.Command {
	var user domain.User
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed user token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			provider := identity.NewJWTProvider(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0))
			token, err := provider.Issue(user)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user.ID, "user", "", "user id")
	cmd.Flags().StringVar(&user.Email, "email", "", "user email")
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
