package client

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

type unitResult struct {
	Success    bool   `json:"success"`
	Confidence int    `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

type orchestrationResult struct {
	Success     bool                  `json:"success"`
	Results     map[string]unitResult `json:"results"`
	Errors      []string              `json:"errors"`
	CompletedAt string                `json:"completed_at"`
}

type agentReport struct {
	Agent   string        `json:"agent"`
	Outcome unitResult    `json:"outcome"`
	Next    TriggerResult `json:"next"`
}

// Evidence is one stored chunk.
type Evidence struct {
	Agent      string `json:"agent"`
	ChunkType  string `json:"chunk_type"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

// AnalyzeCmd runs the expert panel on a document.
func AnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <document-id>",
		Short: "Run the expert panel and synthesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var res orchestrationResult
			if err := api.Decode(cmd.Context(), http.MethodPost, "/documents/"+url.PathEscape(args[0])+"/analysis", nil, &res); err != nil {
				return fmt.Errorf("failed to run analysis: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, res)
			}
			names := make([]string, 0, len(res.Results))
			for name := range res.Results {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				r := res.Results[name]
				status := "ok"
				if !r.Success {
					status = "failed: " + r.Error
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %3d  %s\n", name, r.Confidence, status)
			}
			if !res.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "Synthesis incomplete: %s\n", strings.Join(res.Errors, "; "))
			}
			return nil
		},
	}
}

// RunCmd runs a single workflow agent.
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <document-id> <agent>",
		Short: "Run Extract, DuplicateCheck, QuickScan or Timeline now",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var rep agentReport
			path := "/documents/" + url.PathEscape(args[0]) + "/agents/" + url.PathEscape(args[1])
			if err := api.Decode(cmd.Context(), http.MethodPost, path, nil, &rep); err != nil {
				return fmt.Errorf("failed to run agent: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, rep)
			}
			if rep.Outcome.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "%s succeeded (confidence %d)\n", rep.Agent, rep.Outcome.Confidence)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s failed: %s\n", rep.Agent, rep.Outcome.Error)
			}
			printTrigger(cmd, rep.Next)
			return nil
		},
	}
}

// EvidenceCmd prints the stored evidence of a document.
func EvidenceCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "evidence <document-id>",
		Short: "Show evidence written by the agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path := "/documents/" + url.PathEscape(args[0]) + "/evidence"
			if agent != "" {
				path += "?agent=" + url.QueryEscape(agent)
			}
			var items []Evidence
			if err := api.Decode(cmd.Context(), http.MethodGet, path, nil, &items); err != nil {
				return fmt.Errorf("failed to get evidence: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No evidence found")
				return nil
			}
			for _, e := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "## %s #%d\n%s\n\n", e.Agent, e.ChunkIndex, e.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&agent, "agent", "a", "", "Only show evidence written by this agent")

	return cmd
}
