package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// Document represents a document from the API.
type Document struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	CustomerName          string          `json:"customer_name"`
	Status                string          `json:"status"`
	StatusLabel           string          `json:"status_label"`
	Decision              string          `json:"decision"`
	WebsiteURL            string          `json:"website_url,omitempty"`
	ExtractedRequirements json.RawMessage `json:"extracted_requirements,omitempty"`
	DuplicateCheck        *DuplicateCheck `json:"duplicate_check,omitempty"`
	Version               int             `json:"version"`
	CreatedAt             string          `json:"created_at"`
	UpdatedAt             string          `json:"updated_at"`
}

type DuplicateCheck struct {
	HasDuplicates bool `json:"has_duplicates"`
	UserOverride  bool `json:"user_override"`
	Matches       []struct {
		DocumentID string  `json:"document_id"`
		Title      string  `json:"title"`
		Status     string  `json:"status"`
		Score      float64 `json:"score"`
	} `json:"matches"`
}

type source struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type createRequest struct {
	Title        string   `json:"title"`
	CustomerName string   `json:"customer_name"`
	WebsiteURL   string   `json:"website_url,omitempty"`
	Sources      []source `json:"sources,omitempty"`
	Start        bool     `json:"start"`
}

type createResponse struct {
	Document     *Document      `json:"document"`
	ChunksStored int            `json:"chunks_stored"`
	Workflow     *TriggerResult `json:"workflow,omitempty"`
}

type listResponse struct {
	Items   []*Document `json:"items"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

// DocumentCmd groups the document commands.
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"doc"},
		Short:   "Create and inspect tender documents",
	}
	cmd.AddCommand(documentCreateCmd())
	cmd.AddCommand(documentGetCmd())
	cmd.AddCommand(documentListCmd())
	return cmd
}

func documentCreateCmd() *cobra.Command {
	var (
		req     createRequest
		sources []string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a document from tender text files",
		Long:  "Creates a document and ingests the given text files. Use - to read a source from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			req.Title = args[0]
			for _, path := range sources {
				s, err := readSource(cmd, path)
				if err != nil {
					return err
				}
				req.Sources = append(req.Sources, s)
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var out createResponse
			if err := api.Decode(cmd.Context(), http.MethodPost, "/documents", req, &out); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", out.Document.Title, out.Document.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d chunks\n", out.ChunksStored)
			if out.Workflow != nil {
				printTrigger(cmd, *out.Workflow)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.CustomerName, "customer", "c", "", "Customer name")
	cmd.Flags().StringVar(&req.WebsiteURL, "website", "", "Customer website URL")
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Text file with tender content (repeatable)")
	cmd.Flags().BoolVar(&req.Start, "start", false, "Start the workflow after creation")

	return cmd
}

func readSource(cmd *cobra.Command, path string) (source, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return source{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return source{Name: "stdin", Content: string(data)}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("failed to read source %s: %w", path, err)
	}
	return source{Name: filepath.Base(path), Content: string(data)}, nil
}

func documentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <document-id>",
		Short:   "Show a document",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var doc Document
			if err := api.Decode(cmd.Context(), http.MethodGet, "/documents/"+url.PathEscape(args[0]), nil, &doc); err != nil {
				return fmt.Errorf("failed to get document: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, doc)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title: %s\n", doc.Title)
			fmt.Fprintf(out, "Customer: %s\n", doc.CustomerName)
			fmt.Fprintf(out, "Status: %s\n", doc.StatusLabel)
			fmt.Fprintf(out, "Decision: %s\n", doc.Decision)
			if doc.WebsiteURL != "" {
				fmt.Fprintf(out, "Website: %s\n", doc.WebsiteURL)
			}
			if dc := doc.DuplicateCheck; dc != nil && dc.HasDuplicates {
				fmt.Fprintf(out, "Possible duplicates (override: %t):\n", dc.UserOverride)
				for _, m := range dc.Matches {
					fmt.Fprintf(out, "  %s  %.2f  %s\n", m.DocumentID, m.Score, m.Title)
				}
			}
			fmt.Fprintf(out, "Updated: %s\n", doc.UpdatedAt)
			return nil
		},
	}
}

func documentListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			var page listResponse
			if err := api.Decode(cmd.Context(), http.MethodGet, "/documents?"+q.Encode(), nil, &page); err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
				return nil
			}
			for _, d := range page.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-28s %s\n", d.ID, d.StatusLabel, d.Title)
			}
			if page.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore results available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
