package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/runner"
)

var (
	historyLimit    int
	historyTable    string
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List applied migrations from the version table",
	Long: `List the applied migrations recorded in the version table, newest first,
with when and by whom each was applied and how long it took.

Examples:
  relational history                    # every applied migration
  relational history --limit 10         # the ten most recent
  relational history --table books      # only migrations whose SQL touches "books"
  relational history --detailed         # one block per migration
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		return withRunner(ctx, func(r *runner.Runner) error {
			if err := r.Versions().Init(ctx); err != nil {
				return err
			}
			history, err := r.Versions().History(ctx, historyLimit)
			if err != nil {
				return fmt.Errorf("error getting migration history: %w", err)
			}
			if historyTable != "" {
				migrations, err := runner.LoadMigrations(cfg.Migrations)
				if err != nil {
					return err
				}
				history = filterByTable(history, migrations, historyTable)
			}

			if len(history) == 0 {
				fmt.Fprintln(out, "📋 No migration history found")
				return nil
			}
			showMigrationHistory(out, history, historyDetailed)
			return nil
		})
	},
}

// filterByTable keeps the records whose migration file mentions table.
func filterByTable(history []runner.MigrationRecord, migrations []runner.Migration, table string) []runner.MigrationRecord {
	quoted := fmt.Sprintf("%q", table)
	touches := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		touches[m.Version] = strings.Contains(m.Up, quoted) || strings.Contains(m.Down, quoted)
	}

	var out []runner.MigrationRecord
	for _, rec := range history {
		if touches[rec.Version] {
			out = append(out, rec)
		}
	}
	return out
}

func showMigrationHistory(w io.Writer, history []runner.MigrationRecord, detailed bool) {
	fmt.Fprintln(w, "📋 Migration History")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if detailed {
		showDetailedHistory(w, history)
	} else {
		showSummaryHistory(w, history)
	}
}

func showDetailedHistory(w io.Writer, history []runner.MigrationRecord) {
	green := color.New(color.FgGreen, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	for i, record := range history {
		fmt.Fprintf(w, "\n%d. ", i+1)
		green.Fprint(w, "✅ ")
		blue.Fprintf(w, "%s\n", record.Name)

		cyan.Fprintf(w, "   🔢 Version: %04d\n", record.Version)
		cyan.Fprintf(w, "   📅 Executed: %s\n", record.AppliedAt.Local().Format("2006-01-02 15:04:05"))
		cyan.Fprintf(w, "   ⏱️  Duration: %v\n", record.ExecutionTime)
		if record.ExecutedBy != "" {
			cyan.Fprintf(w, "   👤 User: %s\n", record.ExecutedBy)
		}
		if len(record.Checksum) >= 8 {
			cyan.Fprintf(w, "   🔍 Checksum: %s\n", record.Checksum[:8]+"...")
		}
	}
}

func showSummaryHistory(w io.Writer, history []runner.MigrationRecord) {
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Fprintf(w, "%-6s %-25s %-12s %-10s %s\n", "Ver", "Migration", "Duration", "User", "Date")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	totalDuration := time.Duration(0)
	for _, record := range history {
		user := record.ExecutedBy
		if user == "" {
			user = "N/A"
		}

		migrationName := record.Name
		if len(migrationName) > 23 {
			migrationName = migrationName[:20] + "..."
		}

		fmt.Fprintf(w, "%-6s %-25s %-12s %-10s %s\n",
			fmt.Sprintf("%04d", record.Version),
			blue.Sprint(migrationName),
			record.ExecutionTime.String(),
			user,
			record.AppliedAt.Local().Format("2006-01-02 15:04"),
		)
		totalDuration += record.ExecutionTime
	}

	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "📊 Summary: %d applied\n", len(history))
	if totalDuration > 0 {
		fmt.Fprintf(w, "⏱️  Total execution time: %v\n", totalDuration)
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of records to show (0 = all)")
	historyCmd.Flags().StringVarP(&historyTable, "table", "t", "", "Filter by table name")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}
