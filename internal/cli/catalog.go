package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martiniano/crm-console/internal/app"
	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/navigation"
)

func newDashboardCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show KPIs and the pipeline breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.guarded(cmd, navigation.RouteDashboard, func(ctx context.Context, c *app.App) error {
				vm := c.DashboardView()
				if err := vm.Load(ctx); err != nil {
					return err
				}
				snap := vm.State().Snapshot
				if a.JSON {
					return writeJSON(cmd, snap)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDashboard(*snap, vm.BarPercent))
				return nil
			})
		},
	}
}

func newClientsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Client commands",
	}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.guarded(cmd, navigation.RouteClients, func(ctx context.Context, c *app.App) error {
				vm := c.ClientsList()
				if err := vm.Load(ctx); err != nil {
					return err
				}
				vm.SetSearchTerm(search)
				st := vm.State()
				if a.JSON {
					return writeJSON(cmd, st.Clients)
				}
				if len(st.Clients) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(st.EmptyMessage))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderClients(st.Clients))
				return nil
			})
		},
	}
	list.Flags().StringVar(&search, "search", "", "Filter by name, email or company")

	cmd.AddCommand(list)
	return cmd
}

func newProjectsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}

	var status, search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter domain.ProjectStatus
			if status != "" {
				parsed, ok := domain.ParseProjectStatus(status)
				if !ok {
					return writeErr(cmd, domain.NewClientValidation("status", "unknown project status "+status))
				}
				filter = parsed
			}

			return a.guarded(cmd, navigation.RouteProjects, func(ctx context.Context, c *app.App) error {
				vm := c.ProjectsList()
				if err := vm.SetStatus(ctx, filter); err != nil {
					return err
				}
				vm.SetSearchTerm(search)
				st := vm.State()
				if a.JSON {
					return writeJSON(cmd, st.Projects)
				}
				if len(st.Projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(st.EmptyMessage))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProjects(st.Projects))
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "planning|in_progress|completed|on_hold")
	list.Flags().StringVar(&search, "search", "", "Filter by name, client or description")

	cmd.AddCommand(list)
	return cmd
}
