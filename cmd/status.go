package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/runner"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withRunner(ctx, func(r *runner.Runner) error {
			st, err := r.Status(ctx)
			if err != nil {
				return fmt.Errorf("status error: %w", err)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

func printStatus(w io.Writer, st *runner.Status) {
	fmt.Fprintf(w, "📌 Current version: %04d\n\n", st.Current)

	fmt.Fprintln(w, "✅ Applied migrations:")
	for _, rec := range st.Applied {
		fmt.Fprintf(w, "   - %s (%s)\n", rec.Name, rec.AppliedAt.Local().Format("2006-01-02 15:04:05"))
	}

	if len(st.Modified) > 0 {
		yellow := color.New(color.FgYellow)
		yellow.Fprintln(w, "\n⚠️  Modified after apply:")
		for _, m := range st.Modified {
			yellow.Fprintf(w, "   - %s\n", m.Name)
		}
	}
	if len(st.Missing) > 0 {
		red := color.New(color.FgRed)
		red.Fprintln(w, "\n❌ Applied but missing on disk:")
		for _, rec := range st.Missing {
			red.Fprintf(w, "   - %s\n", rec.Name)
		}
	}

	fmt.Fprintln(w, "\n🕒 Pending migrations:")
	for _, m := range st.Pending {
		fmt.Fprintln(w, "   -", m.Name)
	}
}
