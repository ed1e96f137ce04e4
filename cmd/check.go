package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/runner"
	"github.com/ridoystarlord/relational/validator"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check database connectivity and migration status",
	Long: `Check the current state of your database and migrations.

This command will:
- Verify database connectivity
- Check if the schema_migrations table exists
- Compare applied versions with the migration files
- Report any inconsistencies

Examples:
  relational check                    # Check current state
  relational check --timeout 10s      # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkDatabase(cmd); err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Check completed successfully")
		return nil
	},
}

var checkTimeout time.Duration

func init() {
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the check")
}

func checkDatabase(cmd *cobra.Command) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()
	out := cmd.OutOrStdout()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Fprintf(out, "🔌 Connected (%s)\n", db.Dialect())

	tables, err := validator.TableNames(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if !tables["schema_migrations"] {
		fmt.Fprintln(out, "⚠️  schema_migrations table not found")
		fmt.Fprintln(out, "   Run 'relational migrate' to apply the first migration")
		return nil
	}

	st, err := runner.New(db, cfg.Migrations, logger).Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "📊 Found %d applied migrations, %d pending\n", len(st.Applied), len(st.Pending))
	if len(st.Modified) > 0 || len(st.Missing) > 0 {
		return fmt.Errorf("%d applied migrations were modified and %d are missing on disk", len(st.Modified), len(st.Missing))
	}
	fmt.Fprintln(out, "✅ Migration files are consistent with the database")
	return nil
}
