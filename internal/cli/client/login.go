package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// LoginCmd stores the server URL after checking the server answers.
func LoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <api-url>",
		Short: "Point the CLI at a tenderflow server",
		Long:  "Checks the server health endpoint and saves the URL to the global config.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithConfig(args[0])
			if err != nil {
				return err
			}
			if err := api.Decode(cmd.Context(), http.MethodGet, "/health", nil, nil); err != nil {
				return fmt.Errorf("server not reachable: %w", err)
			}
			if err := SaveGlobalConfig(&GlobalConfig{APIURL: api.BaseURL(), SavedAt: time.Now().UTC()}); err != nil {
				return err
			}
			path, _ := GetConfigPath()

			if outputJSON {
				data, _ := json.MarshalIndent(map[string]string{"api_url": api.BaseURL(), "config": path}, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s\nConfig saved to %s\n", api.BaseURL(), path)
			return nil
		},
	}
	return cmd
}

// LogoutCmd removes the saved server URL.
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved server URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved server removed")
			return nil
		},
	}
}
