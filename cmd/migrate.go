package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/runner"
)

var dryRunMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		return withRunner(ctx, func(r *runner.Runner) error {
			if dryRunMigrate {
				pending, err := r.Preview(ctx, out)
				if err != nil {
					return fmt.Errorf("dry run failed: %w", err)
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "✅ No pending migrations.")
				}
				return nil
			}

			applied, err := r.Apply(ctx)
			for _, m := range applied {
				fmt.Fprintln(out, "✅ Applied:", m.Name)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "✅ No pending migrations.")
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
