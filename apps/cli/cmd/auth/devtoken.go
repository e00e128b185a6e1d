package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/worklane/apps/cli/cmd/clienv"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/auth/devtoken"
)

// Command groups token helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}
	cmd.AddCommand(devTokenCommand(clienv.MustLoad()))
	return cmd
}

func devTokenCommand(defaults clienv.Env) *cobra.Command {
	var (
		params devtoken.Params
		secret string
		issuer string
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a signed session token for local testing",
		Long: "Mint a session token signed with the API secret. The user is not looked up, " +
			"so the token is only useful against a server sharing JWT_SECRET.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			codec, err := platformauth.NewJWTCodec(secret, issuer)
			if err != nil {
				return err
			}

			token, err := devtoken.Build(codec, params)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.UserID, "user-id", "", "subject user id")
	cmd.Flags().StringVar(&params.TenantID, "tenant-id", "", "tenant id (omit for super_admin)")
	cmd.Flags().StringVar(&params.Role, "role", "user", "super_admin, tenant_admin or user")
	cmd.Flags().DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&secret, "secret", defaults.JWTSecret, "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", defaults.JWTIssuer, "token issuer (defaults to JWT_ISSUER)")

	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
