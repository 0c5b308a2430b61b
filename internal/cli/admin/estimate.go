package admin

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/estimate"
	"github.com/cloo-solutions/tenderflow/internal/storage"
)

func EstimateCmd() *cobra.Command {
	var (
		outFile    string
		upload     bool
		documentID string
	)

	cmd := &cobra.Command{
		Use:   "estimate <inventory-file>",
		Short: "Estimate effort from a website inventory",
		Long:  "Calculate an effort estimate from a YAML or JSON website inventory and render the markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			in, err := estimate.LoadInput(args[0])
			if err != nil {
				return err
			}
			result := estimate.Calculate(in)
			now := time.Now().UTC()
			report := estimate.Render(in, result, now)

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(report), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}

			var url string
			if upload {
				if documentID == "" {
					documentID = "adhoc"
				}
				url, err = uploadReport(cmd, storage.ReportKey(documentID, now), []byte(report))
				if err != nil {
					return err
				}
			}

			if outputFormat == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"estimate":   result,
					"report_url": url,
				})
			}
			if outFile == "" {
				fmt.Fprint(cmd.OutOrStdout(), report)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%.0f hours)\n", outFile, result.TotalHours)
			}
			if url != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report uploaded: %s\n", url)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Write the markdown report to this file")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the report to object storage")
	cmd.Flags().StringVar(&documentID, "document", "", "Document ID used in the report key")

	return cmd
}

var errNoObjectStorage = errors.New("object storage is not configured: TENDERFLOW_S3_ENDPOINT required")

func uploadReport(cmd *cobra.Command, key string, body []byte) (string, error) {
	client, err := requireReportStore(cmd)
	if err != nil {
		return "", err
	}
	if _, err := client.PutReport(cmd.Context(), key, body); err != nil {
		return "", err
	}
	return client.GenerateDownloadURL(cmd.Context(), key)
}

func ReportCmd() *cobra.Command {
	var (
		link bool
		list bool
	)

	cmd := &cobra.Command{
		Use:   "report <key|document-id>",
		Short: "Fetch a stored estimate report",
		Long:  "Print a stored report by key, or the latest report of a document when given a document ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			client, err := requireReportStore(cmd)
			if err != nil {
				return err
			}

			key := args[0]
			_, isKey := storage.DocumentFromKey(key)
			if list {
				documentID := key
				if id, ok := storage.DocumentFromKey(key); ok {
					documentID = id
				}
				reports, err := client.ListReports(cmd.Context(), documentID)
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), reports)
				}
				for _, r := range reports {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", r.Key, r.Size, r.LastModified.Format(time.RFC3339))
				}
				return nil
			}
			if !isKey {
				if key, err = client.LatestReportKey(cmd.Context(), key); err != nil {
					return err
				}
			}

			if link {
				url, err := client.GenerateDownloadURL(cmd.Context(), key)
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]string{"key": key, "url": url})
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			}
			body, err := client.GetReport(cmd.Context(), key)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	cmd.Flags().BoolVar(&link, "url", false, "Print a presigned download URL instead of the report")
	cmd.Flags().BoolVar(&list, "list", false, "List every report of the document, newest first")

	return cmd
}

func requireReportStore(cmd *cobra.Command) (*storage.S3Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := newReportStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errNoObjectStorage
	}
	return client, nil
}
