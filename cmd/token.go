package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/auth"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/user"
)

// TokenCmd returns the token command, which mints development tokens signed
// with the server's shared secret
func TokenCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (shared-secret servers only)",
		Long: `Mint a bearer token signed with auth.jwt_secret.

Servers configured with a JWKS url only accept tokens from that issuer, so
this is meant for local development and tests.

Examples:
  kanban token --save
  kanban token --user alice --save
  export KANBAN_TOKEN=$(kanban token --user bob --quiet)
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("user", "", "User ID, the token's subject (default $KANBAN_USER or your login name)")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().Duration("ttl", 0, "Lifetime (default auth.token_ttl)")
	cmd.Flags().Bool("save", false, "Store the token as client.token in the config file")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		env.Bind(cmd)
		f := env.Formatter()
		cfg, err := env.Config()
		if err != nil {
			return f.Fail(err)
		}

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = user.Name()
		}
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		token, err := auth.Issue(cfg.Auth.JWTSecret, auth.IssueParams{
			UserID:   userID,
			Name:     name,
			Email:    email,
			Audience: cfg.Auth.Audience,
			Issuer:   cfg.Auth.Issuer,
			TTL:      ttl,
		})
		if err != nil {
			return f.Fail(err)
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			cfg.Client.Token = token
			if err := cfg.Save(env.ConfigPath); err != nil {
				return f.Fail(fmt.Errorf("failed to save config: %w", err))
			}
		}

		switch {
		case f.Quiet:
			_, err = fmt.Fprintln(f.Out, token)
			return err
		case f.JSON:
			return f.Message("", map[string]any{
				"token":      token,
				"user_id":    userID,
				"expires_at": time.Now().Add(ttl).UTC(),
			})
		}
		_, err = fmt.Fprintf(f.Out, "Token for %s (valid %s):\n%s\n", userID, ttl, token)
		return err
	}
	return cmd
}
