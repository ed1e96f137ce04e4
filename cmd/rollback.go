package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/runner"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations.

Examples:
  relational rollback           # Rollback the last migration
  relational rollback --steps=3 # Rollback the last 3 migrations
  relational rollback -s 5      # Rollback the last 5 migrations
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if steps < 1 {
			return fmt.Errorf("steps must be at least 1")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		return withRunner(ctx, func(r *runner.Runner) error {
			reverted, err := r.Rollback(ctx, steps)
			for _, m := range reverted {
				fmt.Fprintln(out, "↩️  Rolled back:", m.Name)
			}
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}

			switch len(reverted) {
			case 0:
				fmt.Fprintln(out, "ℹ️  Nothing to roll back.")
			case 1:
				fmt.Fprintln(out, "✅ Rolled back 1 migration.")
			default:
				fmt.Fprintf(out, "✅ Rolled back %d migrations.\n", len(reverted))
			}
			return nil
		})
	},
}
