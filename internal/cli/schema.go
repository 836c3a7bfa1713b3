package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldwork/formsync/internal/schemaapi"
)

// NewSchemaCommand creates the schema command group for the remote form
// schema store.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage form schemas in the remote store",
	}

	cmd.AddCommand(newSchemaListCommand(rootOpts))
	cmd.AddCommand(newSchemaSearchCommand(rootOpts))
	cmd.AddCommand(newSchemaGetCommand(rootOpts))
	cmd.AddCommand(newSchemaPushCommand(rootOpts))
	cmd.AddCommand(newSchemaReviewCommand(rootOpts, "approve", "Approve a form schema",
		func(c *schemaapi.Client) reviewFunc { return c.Approve }))
	cmd.AddCommand(newSchemaReviewCommand(rootOpts, "reject", "Reject a form schema",
		func(c *schemaapi.Client) reviewFunc { return c.Reject }))
	cmd.AddCommand(newSchemaDeleteCommand(rootOpts))

	return cmd
}

func schemaClient(opts *RootOptions) *schemaapi.Client {
	return schemaapi.New(opts.Endpoint, opts.Token)
}

func newSchemaListCommand(rootOpts *RootOptions) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored form schemas",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			result, err := schemaClient(rootOpts).List(cmd.Context(), page, limit)
			if err != nil {
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}
			return outputPage(formatter, result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "results per page")

	return cmd
}

func newSchemaSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:           "search <query>",
		Short:         "Search stored form schemas",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			result, err := schemaClient(rootOpts).Search(cmd.Context(), args[0], page, limit)
			if err != nil {
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}
			return outputPage(formatter, result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "results per page")

	return cmd
}

func newSchemaGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <name>",
		Short:         "Fetch one form schema by name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			record, err := schemaClient(rootOpts).GetByName(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, schemaapi.ErrNotFound) {
					return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no form named %q", args[0]))
				}
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}

			if formatter.Format == "json" {
				return formatter.Success(record)
			}
			// Text output is the form definition itself, ready to save and
			// feed back into validate/submit.
			data, err := yaml.Marshal(record.Form)
			if err != nil {
				return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
			}
			fmt.Fprintf(formatter.Writer, "%s", data)
			return nil
		},
	}
}

func newSchemaPushCommand(rootOpts *RootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "push <schema>",
		Short: "Upload a form schema to the store",
		Long: `Upload a local form schema file to the remote store.

The file is schema-checked locally before anything is sent. Without --id
a new form is created; with --id the stored form is replaced.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			f, err := loadForm(args[0])
			if err != nil {
				return fail(formatter, ExitCommandError, ErrCodeSchema, err.Error())
			}

			client := schemaClient(rootOpts)
			var record schemaapi.Record
			if id == "" {
				record, err = client.Create(cmd.Context(), f)
			} else {
				record, err = client.Update(cmd.Context(), id, f)
			}
			if err != nil {
				if errors.Is(err, schemaapi.ErrNotFound) {
					return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no stored form %s", id))
				}
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}

			if formatter.Format == "json" {
				return formatter.Success(record)
			}
			fmt.Fprintf(formatter.Writer, "✓ Pushed %q (%s, %s)\n", record.Form.Name, record.ID, record.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "replace the stored form with this id")

	return cmd
}

type reviewFunc func(ctx context.Context, id string) (schemaapi.Record, error)

func newSchemaReviewCommand(rootOpts *RootOptions, verb, short string, pick func(*schemaapi.Client) reviewFunc) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			record, err := pick(schemaClient(rootOpts))(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, schemaapi.ErrNotFound) {
					return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no stored form %s", args[0]))
				}
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}

			if formatter.Format == "json" {
				return formatter.Success(record)
			}
			fmt.Fprintf(formatter.Writer, "✓ %s is now %s\n", record.Form.Name, record.Status)
			return nil
		},
	}
}

func newSchemaDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a stored form schema",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if err := schemaClient(rootOpts).Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, schemaapi.ErrNotFound) {
					return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no stored form %s", args[0]))
				}
				return fail(formatter, ExitCommandError, ErrCodeGateway, err.Error())
			}
			return formatter.Success(fmt.Sprintf("Deleted %s", args[0]))
		},
	}
}

func outputPage(formatter *OutputFormatter, page schemaapi.Page) error {
	if formatter.Format == "json" {
		return formatter.Success(page)
	}

	if len(page.Records) == 0 {
		fmt.Fprintln(formatter.Writer, "No forms found")
		return nil
	}
	for _, record := range page.Records {
		fmt.Fprintf(formatter.Writer, "%-24s  %-8s  %s\n", record.Form.Name, record.Status, record.Form.Title)
	}
	fmt.Fprintf(formatter.Writer, "\npage %d of %d form(s)\n", page.Page, page.Total)
	return nil
}
