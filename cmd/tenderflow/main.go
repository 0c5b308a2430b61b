package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cloo-solutions/tenderflow/internal/cli"
	"github.com/cloo-solutions/tenderflow/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	client.Version = version

	rootCmd := &cobra.Command{
		Use:   "tenderflow",
		Short: "Tenderflow CLI - tender evaluation from the terminal",
		Long: `Tenderflow CLI talks to a running tenderflowd server.

Environment variables:
  TENDERFLOW_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
		Annotations: map[string]string{
			cli.EnvAnnotation: "TENDERFLOW_API_URL",
		},
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.LoginCmd())
	rootCmd.AddCommand(client.LogoutCmd())
	rootCmd.AddCommand(client.DocumentCmd())
	rootCmd.AddCommand(client.WorkflowCmd())
	rootCmd.AddCommand(client.AnalyzeCmd())
	rootCmd.AddCommand(client.RunCmd())
	rootCmd.AddCommand(client.EvidenceCmd())

	cli.CheckHelpJSON(rootCmd)

	// Ctrl-C aborts an in-flight analysis request instead of waiting out the timeout.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
