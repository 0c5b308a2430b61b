package admin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/app"
	"github.com/cloo-solutions/tenderflow/internal/domain"
)

func AgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Run analysis agents",
		Long:  "Run analysis agents in the foreground and read the evidence they stored",
	}

	cmd.AddCommand(AgentsRunCmd())
	cmd.AddCommand(AgentsExpertsCmd())
	cmd.AddCommand(AgentsEvidenceCmd())

	return cmd
}

func AgentsRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <document-id> <agent>",
		Short: "Run one workflow agent",
		Long:  "Run Extract, DuplicateCheck, QuickScan or Timeline and advance the workflow on success",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				rep, err := a.Analysis.RunAgent(cmd.Context(), args[0], domain.AgentName(args[1]))
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), rep)
				}
				out := cmd.OutOrStdout()
				if rep.Outcome.Success {
					fmt.Fprintf(out, "%s succeeded (confidence %d)\n", rep.Agent, rep.Outcome.Confidence)
				} else {
					fmt.Fprintf(out, "%s failed: %s\n", rep.Agent, rep.Outcome.Error)
				}
				printTrigger(cmd, rep.Next)
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func AgentsExpertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experts <document-id>",
		Short: "Run the expert panel and synthesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Analysis.RunExpertAgents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}

				names := make([]string, 0, len(res.Results))
				for name := range res.Results {
					names = append(names, string(name))
				}
				sort.Strings(names)

				out := cmd.OutOrStdout()
				for _, name := range names {
					r := res.Results[domain.AgentName(name)]
					status := "ok"
					if !r.Success {
						status = "failed: " + r.Error
					}
					fmt.Fprintf(out, "  %-12s %3d  %s\n", name, r.Confidence, status)
				}
				if res.Success {
					fmt.Fprintln(out, "Synthesis complete")
				} else {
					fmt.Fprintf(out, "Synthesis incomplete: %s\n", strings.Join(res.Errors, "; "))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func AgentsEvidenceCmd() *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "evidence <document-id>",
		Short: "List stored evidence chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				chunks, err := a.Analysis.Evidence(cmd.Context(), args[0], domain.AgentName(agentName))
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), chunks)
				}
				if len(chunks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No evidence found")
					return nil
				}
				for _, c := range chunks {
					fmt.Fprintf(cmd.OutOrStdout(), "## %s #%d\n%s\n\n", c.AgentName, c.ChunkIndex, c.Content)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Only show evidence written by this agent")

	return cmd
}
