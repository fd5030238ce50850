package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/martiniano/crm-console/internal/app"
	"github.com/martiniano/crm-console/internal/domain"
)

func newLoginCmd(a *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *app.App) error {
				id, err := c.Session.Login(ctx, email, password)
				if err != nil {
					return err
				}
				if a.JSON {
					return writeJSON(cmd, id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", okStyle.Render("Logged in as"), id.Username, id.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("CRM_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("CRM_PASSWORD", ""), "Account password")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *app.App) error {
				if err := c.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

type whoami struct {
	domain.Identity
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Verified  bool       `json:"verified"`
}

func newWhoamiCmd(a *App) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *app.App) error {
				id := c.Session.CurrentIdentity()
				if id == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), loginHint)
					return errLoginRequired
				}
				out := whoami{Identity: *id}
				if exp, ok := c.Session.ExpiresAt(); ok {
					out.ExpiresAt = &exp
				}
				if verify {
					remote, err := c.Auth.Me(ctx)
					if err != nil {
						return err
					}
					out.Identity = *remote
					out.Verified = true
				}

				if a.JSON {
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, labelStyle.Render("User")+out.Username)
				fmt.Fprintln(w, labelStyle.Render("Email")+out.Email)
				fmt.Fprintln(w, labelStyle.Render("Role")+out.Role)
				if out.ExpiresAt != nil {
					fmt.Fprintln(w, labelStyle.Render("Expires")+out.ExpiresAt.Local().Format(time.RFC1123))
				}
				if out.Verified {
					fmt.Fprintln(w, okStyle.Render("Token accepted by the backend"))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against GET /auth/me")
	return cmd
}
