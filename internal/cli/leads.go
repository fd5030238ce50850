package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martiniano/crm-console/internal/app"
	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/navigation"
	"github.com/martiniano/crm-console/internal/validation"
)

func newLeadsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Lead pipeline commands",
	}
	cmd.AddCommand(newLeadsListCmd(a))
	cmd.AddCommand(newLeadsShowCmd(a))
	cmd.AddCommand(newLeadsStageCmd(a))
	cmd.AddCommand(newLeadsUpdateCmd(a))
	cmd.AddCommand(newLeadsDeleteCmd(a))
	return cmd
}

func newLeadsListCmd(a *App) *cobra.Command {
	var (
		page   int
		stage  string
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter domain.Stage
			if stage != "" {
				parsed, ok := domain.ParseStage(stage)
				if !ok {
					return writeErr(cmd, domain.NewClientValidation("stage", "unknown stage "+stage))
				}
				filter = parsed
			}

			return a.guarded(cmd, navigation.RouteLeads, func(ctx context.Context, c *app.App) error {
				vm := c.LeadsList()
				if err := vm.SetStage(ctx, filter); err != nil {
					return err
				}
				if page > 1 {
					if err := vm.GoToPage(ctx, page); err != nil {
						return err
					}
				}
				vm.SetSearchTerm(search)

				st := vm.State()
				if a.JSON {
					return writeJSON(cmd, st)
				}
				w := cmd.OutOrStdout()
				if len(st.Leads) == 0 {
					fmt.Fprintln(w, mutedStyle.Render(st.EmptyMessage))
				} else {
					fmt.Fprintln(w, renderLeads(st.Leads))
				}
				fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Page %d of %d · %s", st.Page, st.TotalPages, st.Stage.Label())))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().StringVar(&stage, "stage", "", "Only leads in this stage")
	cmd.Flags().StringVar(&search, "search", "", "Filter the page by name, email or company")
	return cmd
}

func newLeadsShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return a.guarded(cmd, navigation.LeadRoute(id), func(ctx context.Context, c *app.App) error {
				vm := c.LeadDetail()
				if err := vm.Load(ctx, id); err != nil {
					return err
				}
				return printLead(cmd, a, *vm.State().Lead)
			})
		},
	}
}

func newLeadsStageCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <id> <stage>",
		Short: "Move a lead to another pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			stage, ok := domain.ParseStage(args[1])
			if !ok {
				return writeErr(cmd, domain.NewClientValidation("stage", "unknown stage "+args[1]))
			}

			return a.guarded(cmd, navigation.LeadRoute(id), func(ctx context.Context, c *app.App) error {
				vm := c.LeadDetail()
				if err := vm.Load(ctx, id); err != nil {
					return err
				}
				if err := vm.UpdateStage(ctx, stage); err != nil {
					if alert := vm.State().Alert; alert != "" {
						fmt.Fprintln(cmd.ErrOrStderr(), alertStyle.Render(alert))
						vm.DismissAlert()
					}
					return err
				}
				return printLead(cmd, a, *vm.State().Lead)
			})
		},
	}
}

func newLeadsUpdateCmd(a *App) *cobra.Command {
	fields := []string{
		validation.FieldName,
		validation.FieldEmail,
		validation.FieldPhone,
		validation.FieldCompany,
		validation.FieldBudgetRange,
		validation.FieldProjectType,
		validation.FieldMessage,
	}
	values := make(map[string]*string, len(fields))

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a lead; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			return a.guarded(cmd, navigation.LeadRoute(id), func(ctx context.Context, c *app.App) error {
				vm := c.LeadDetail()
				if err := vm.Load(ctx, id); err != nil {
					return err
				}
				if err := vm.BeginEdit(); err != nil {
					return err
				}
				for _, f := range fields {
					if !cmd.Flags().Changed(f) {
						continue
					}
					if err := vm.SetDraftField(f, *values[f]); err != nil {
						return err
					}
				}
				if err := vm.Save(ctx); err != nil {
					if alert := vm.State().Alert; alert != "" {
						fmt.Fprintln(cmd.ErrOrStderr(), alertStyle.Render(alert))
						vm.DismissAlert()
					}
					return err
				}
				return printLead(cmd, a, *vm.State().Lead)
			})
		},
	}

	for _, f := range fields {
		values[f] = cmd.Flags().String(f, "", "New "+f)
	}
	return cmd
}

func newLeadsDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return a.guarded(cmd, navigation.LeadRoute(id), func(ctx context.Context, c *app.App) error {
				if err := c.Leads.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted lead %d\n", id)
				return nil
			})
		},
	}
}

func printLead(cmd *cobra.Command, a *App, l domain.Lead) error {
	if a.JSON {
		return writeJSON(cmd, l)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderLead(l))
	return nil
}
