package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// TriggerResult reports which agent a workflow step queued.
type TriggerResult struct {
	Triggered bool   `json:"triggered"`
	Agent     string `json:"agent,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// WorkflowStatus is the read-only workflow view of a document.
type WorkflowStatus struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	NextAgent   string `json:"next_agent,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	CanProceed  bool   `json:"can_proceed"`
	BlockReason string `json:"block_reason,omitempty"`
	Decision    string `json:"decision"`
}

// WorkflowCmd groups the workflow commands.
func WorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Inspect and advance a document's workflow",
	}
	cmd.AddCommand(workflowStatusCmd())
	cmd.AddCommand(workflowStepCmd("trigger", "Start or advance the workflow", "trigger"))
	cmd.AddCommand(workflowStepCmd("review", "Confirm the extracted requirements", "review"))
	cmd.AddCommand(workflowStepCmd("override", "Continue despite a flagged duplicate", "duplicate-override"))
	cmd.AddCommand(workflowDecideCmd())
	return cmd
}

func workflowPath(id, action string) string {
	p := "/documents/" + url.PathEscape(id) + "/workflow"
	if action != "" {
		p += "/" + action
	}
	return p
}

func workflowStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show where a document stands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			var st WorkflowStatus
			if err := api.Decode(cmd.Context(), http.MethodGet, workflowPath(args[0], ""), nil, &st); err != nil {
				return fmt.Errorf("failed to get workflow status: %w", err)
			}

			if outputJSON {
				return printJSON(cmd, st)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s (%s)\n", st.Label, st.Status)
			fmt.Fprintf(out, "Decision: %s\n", st.Decision)
			if st.NextAgent != "" {
				fmt.Fprintf(out, "Next: %s (%s)\n", st.NextAgent, st.Trigger)
			}
			if st.BlockReason != "" {
				fmt.Fprintf(out, "Blocked: %s\n", st.BlockReason)
			}
			return nil
		},
	}
}

func workflowStepCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <document-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postStep(cmd, workflowPath(args[0], action), nil)
		},
	}
}

func workflowDecideCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "decide <document-id> <bid|no_bid>",
		Short:     "Record the bid decision",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"bid", "no_bid"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return postStep(cmd, workflowPath(args[0], "decision"), map[string]string{"decision": args[1]})
		},
	}
}

func postStep(cmd *cobra.Command, path string, body interface{}) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	var res TriggerResult
	if err := api.Decode(cmd.Context(), http.MethodPost, path, body, &res); err != nil {
		return err
	}
	if outputJSON {
		return printJSON(cmd, res)
	}
	printTrigger(cmd, res)
	return nil
}

func printTrigger(cmd *cobra.Command, res TriggerResult) {
	switch {
	case res.Triggered:
		fmt.Fprintf(cmd.OutOrStdout(), "Queued: %s\n", res.Agent)
	case res.Reason != "":
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing queued: %s\n", res.Reason)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing queued")
	}
}
