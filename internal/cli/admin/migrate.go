package admin

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/tenderflow/internal/cli"
	"github.com/cloo-solutions/tenderflow/internal/database"
)

func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate [up|down|version] [steps]",
		Short: "Apply or inspect database migrations",
		Long:  "Apply pending migrations (up), roll back (down, one step unless given) or print the schema version",
		Args:  cobra.RangeArgs(0, 2),
		Annotations: map[string]string{
			cli.EnvAnnotation: "TENDERFLOW_DATABASE_URL",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			steps := 0
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid step count %q", args[1])
				}
				steps = n
			}

			var status database.MigrationStatus
			switch action {
			case "up":
				status, err = database.Migrate(cfg.DatabaseURL, source, steps)
			case "down":
				if steps == 0 {
					steps = 1
				}
				status, err = database.Migrate(cfg.DatabaseURL, source, -steps)
			case "version":
				status, err = database.MigrationVersion(cfg.DatabaseURL, source)
			default:
				return fmt.Errorf("unknown migrate action %q (expected up, down or version)", action)
			}
			if err != nil {
				return err
			}

			if status.Empty {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d", status.Version)
			if status.Dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", database.DefaultMigrationsSource, "Migrations source URL")

	return cmd
}
