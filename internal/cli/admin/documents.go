package admin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/app"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/service"
)

func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"doc"},
		Short:   "Manage tender documents",
		Long:    "Create, inspect and list tender documents",
	}

	cmd.AddCommand(DocumentCreateCmd())
	cmd.AddCommand(DocumentGetCmd())
	cmd.AddCommand(DocumentListCmd())

	return cmd
}

func DocumentCreateCmd() *cobra.Command {
	var (
		customer string
		website  string
		sources  []string
		start    bool
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new document",
		Long:  "Create a tender document, ingest its source files and optionally start the workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			input := service.CreateDocumentInput{
				Title:        args[0],
				CustomerName: customer,
				WebsiteURL:   website,
				Start:        start,
			}
			for _, path := range sources {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read source %s: %w", path, err)
				}
				input.Sources = append(input.Sources, service.Source{Name: filepath.Base(path), Content: string(content)})
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				out, err := a.Documents.Create(cmd.Context(), input)
				if err != nil {
					return fmt.Errorf("failed to create document: %w", err)
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document created: %s (%s)\n", out.Document.Title, out.Document.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "  Status: %s\n", out.Document.Status.Label())
				fmt.Fprintf(cmd.OutOrStdout(), "  Chunks: %d\n", out.ChunksStored)
				if out.Workflow != nil && out.Workflow.Triggered {
					fmt.Fprintf(cmd.OutOrStdout(), "  Queued: %s\n", out.Workflow.Agent)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	cmd.Flags().StringVarP(&customer, "customer", "c", "", "Customer name")
	cmd.Flags().StringVar(&website, "website", "", "Customer website URL")
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Text file with tender content (repeatable)")
	cmd.Flags().BoolVar(&start, "start", false, "Start the workflow after creation")

	return cmd
}

func DocumentGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				doc, err := a.Documents.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), doc)
				}
				printDocument(cmd, doc)
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func DocumentListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  "List documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocumentList(cmd, outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocumentList(cmd *cobra.Command, outputFormat string, limit int, cursor string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		result, err := a.Documents.List(ctx, cursor, limit)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		if outputFormat == outputJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"items":    result.Items,
				"cursor":   result.Cursor,
				"has_more": result.HasMore,
			})
		}

		if len(result.Items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Documents:")
		for _, doc := range result.Items {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-28s %s\n", doc.ID, doc.Status.Label(), doc.Title)
		}
		if result.HasMore {
			fmt.Fprintf(cmd.OutOrStdout(), "\nMore results available. Use --cursor %s\n", result.Cursor)
		}
		return nil
	})
}

func printDocument(cmd *cobra.Command, doc *domain.Document) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", doc.Title, doc.ID)
	fmt.Fprintf(out, "  Customer: %s\n", doc.CustomerName)
	fmt.Fprintf(out, "  Status:   %s\n", doc.Status.Label())
	if doc.Decision != "" && doc.Decision != domain.DecisionPending {
		fmt.Fprintf(out, "  Decision: %s\n", doc.Decision)
	}
	if doc.WebsiteURL != "" {
		fmt.Fprintf(out, "  Website:  %s\n", doc.WebsiteURL)
	}
	fmt.Fprintf(out, "  Version:  %d\n", doc.Version)
}
