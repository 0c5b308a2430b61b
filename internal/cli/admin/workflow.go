package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/app"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
)

func WorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Drive the document workflow",
		Long:  "Inspect the workflow of a document and apply manual steps",
	}

	cmd.AddCommand(WorkflowStatusCmd())
	cmd.AddCommand(transitionCmd("trigger <document-id>", "Start or advance the workflow",
		func(ctx context.Context, a *app.App, id string, _ []string) (workflow.TriggerResult, error) {
			return a.Workflow.Trigger(ctx, id)
		}))
	cmd.AddCommand(transitionCmd("review <document-id>", "Confirm the extracted requirements",
		func(ctx context.Context, a *app.App, id string, _ []string) (workflow.TriggerResult, error) {
			return a.Workflow.ConfirmReview(ctx, id)
		}))
	cmd.AddCommand(transitionCmd("override <document-id>", "Continue despite a flagged duplicate",
		func(ctx context.Context, a *app.App, id string, _ []string) (workflow.TriggerResult, error) {
			return a.Workflow.OverrideDuplicate(ctx, id)
		}))
	decide := transitionCmd("decide <document-id> <bid|no_bid>", "Record the bid decision",
		func(ctx context.Context, a *app.App, id string, rest []string) (workflow.TriggerResult, error) {
			return a.Workflow.Decide(ctx, id, domain.Decision(rest[0]))
		})
	decide.Args = cobra.ExactArgs(2)
	cmd.AddCommand(decide)

	return cmd
}

func WorkflowStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show where a document stands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				view, err := a.Workflow.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Status: %s (%s)\n", view.Label, view.Status)
				fmt.Fprintf(out, "Decision: %s\n", view.Decision)
				if view.NextAgent != "" {
					fmt.Fprintf(out, "Next: %s (%s)\n", view.NextAgent, view.Trigger)
				}
				if !view.CanProceed && view.BlockReason != "" {
					fmt.Fprintf(out, "Blocked: %s\n", view.BlockReason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

type transitionFunc func(ctx context.Context, a *app.App, documentID string, rest []string) (workflow.TriggerResult, error)

func transitionCmd(use, short string, fn transitionFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), func(a *app.App) error {
				res, err := fn(cmd.Context(), a, args[0], args[1:])
				if err != nil {
					return err
				}
				if outputFormat == outputJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				printTrigger(cmd, res)
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func printTrigger(cmd *cobra.Command, res workflow.TriggerResult) {
	if res.Triggered {
		fmt.Fprintf(cmd.OutOrStdout(), "Queued: %s\n", res.Agent)
		return
	}
	if res.Reason != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing queued: %s\n", res.Reason)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Nothing queued")
}
