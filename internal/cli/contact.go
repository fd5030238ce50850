package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martiniano/crm-console/internal/app"
	"github.com/martiniano/crm-console/internal/domain"
	"github.com/martiniano/crm-console/internal/validation"
)

const contactSuccess = "Message received! I'll get back to you shortly."

func newContactCmd(a *App) *cobra.Command {
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
	var website string

	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send the public contact form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *app.App) error {
				form := c.ContactForm()
				for _, f := range fields {
					if err := form.SetField(f, *values[f]); err != nil {
						return err
					}
				}
				form.SetHoneypot(website)

				err := form.Submit(ctx)
				var invalid *domain.ErrClientValidation
				if errors.As(err, &invalid) {
					for _, f := range fields {
						if msg := form.VisibleError(f); msg != "" {
							fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", alertStyle.Render(f+":"), msg)
						}
					}
					return err
				}
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(contactSuccess))
				return nil
			})
		},
	}

	for _, f := range fields {
		values[f] = cmd.Flags().String(f, "", f)
	}
	cmd.Flags().StringVar(&website, "website", "", "")
	_ = cmd.Flags().MarkHidden("website")
	return cmd
}
