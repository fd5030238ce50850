// Package cli is the crmctl command tree. Every command mounts a view model,
// drives it once and renders the resulting state.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martiniano/crm-console/internal/app"
	"github.com/martiniano/crm-console/internal/config"
	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/navigation"
)

const loginHint = "Session expired or missing. Run `crmctl login` to sign in."

var errLoginRequired = errors.New("login required")

// App carries the persistent flags shared by every command.
type App struct {
	APIURL    string
	LogLevel  string
	SessionDB string
	Ephemeral bool
	JSON      bool
}

func NewRootCmd() *cobra.Command {
	a := &App{}

	cmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Admin console for the CRM backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in once; the session is kept between runs
  crmctl login --email admin@example.com --password secret

  # Work the pipeline
  crmctl leads list --stage qualified
  crmctl leads stage 42 proposal

  # Public contact form (no session needed)
  crmctl contact --name Ann --email ann@example.com --message "We need a new site"
`),
	}

	cmd.PersistentFlags().StringVar(&a.APIURL, "api-url", envOr("CRM_API_URL", ""), "Backend base URL (without /api/v1)")
	cmd.PersistentFlags().StringVar(&a.LogLevel, "log-level", envOr("LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&a.SessionDB, "session-db", envOr("CRM_SESSION_DB", ""), "Path to the session database")
	cmd.PersistentFlags().BoolVar(&a.Ephemeral, "ephemeral", false, "Keep the session in memory for this run only")
	cmd.PersistentFlags().BoolVar(&a.JSON, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newDashboardCmd(a))
	cmd.AddCommand(newLeadsCmd(a))
	cmd.AddCommand(newClientsCmd(a))
	cmd.AddCommand(newProjectsCmd(a))
	cmd.AddCommand(newContactCmd(a))

	return cmd
}

// config resolves env configuration, then lets flags override it.
func (a *App) config() *config.Config {
	cfg := config.Load()
	if a.APIURL != "" {
		cfg.APIBaseURL = strings.TrimRight(a.APIURL, "/")
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.SessionDB != "" {
		cfg.SessionDBPath = a.SessionDB
	}
	return cfg
}

// run builds the client for one command and tears it down afterwards.
func (a *App) run(cmd *cobra.Command, fn func(ctx context.Context, c *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := app.New(ctx, a.config(), app.Options{
		Ephemeral: a.Ephemeral,
		Navigator: navigation.NewTerminal(cmd.ErrOrStderr(), loginHint),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer c.Close(context.Background())

	if err := fn(ctx, c); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// guarded is run behind the route guard for route.
func (a *App) guarded(cmd *cobra.Command, route string, fn func(ctx context.Context, c *app.App) error) error {
	return a.run(cmd, func(ctx context.Context, c *app.App) error {
		if !c.Guard.Enter(route) {
			return errLoginRequired
		}
		return fn(ctx, c)
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func parseLeadID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewClientValidation("id", "must be a positive integer")
	}
	return id, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	if !errors.Is(err, errLoginRequired) {
		fmt.Fprintln(cmd.ErrOrStderr(), domain.DisplayMessage(err))
	}
	return err
}
