package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/cli"
	"github.com/cloo-solutions/tenderflow/internal/cli/admin"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "tenderflowd",
		Short:   "Tenderflow daemon and CLI",
		Long:    "Tenderflow daemon for running the API server, the agent worker and the tender workflow",
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.DocumentCmd())
	rootCmd.AddCommand(admin.WorkflowCmd())
	rootCmd.AddCommand(admin.AgentsCmd())
	rootCmd.AddCommand(admin.EstimateCmd())
	rootCmd.AddCommand(admin.ReportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
