package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/diff"
	"github.com/ridoystarlord/relational/snapshot"
)

var (
	diffVisual    bool
	diffModelsDir string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the schema and the latest snapshot",
	Long: `Show the migration plan between the latest snapshot and your schema.

Examples:
  relational diff                  # Show the planned operations
  relational diff --visual         # Group operations per table with colors
  relational diff -f custom.yaml   # Use custom schema file
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadDesired(diffModelsDir)
		if err != nil {
			return err
		}
		if err := desired.Check(); err != nil {
			return fmt.Errorf("invalid schema: %w", err)
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		c, err := store.Compare(desired)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case c.State == snapshot.UpToDate:
			fmt.Fprintf(out, "✅ No differences found (schema matches snapshot %04d)\n", c.Version)
		case diffVisual:
			showVisualDiff(out, c.Operations)
		default:
			showTextDiff(out, c.Operations)
		}
		return nil
	},
}

func opColor(t diff.OperationType) *color.Color {
	switch t {
	case diff.CreateTable, diff.AddColumn, diff.AddIndex:
		return color.New(color.FgGreen)
	case diff.DropTable, diff.DropColumn, diff.DropIndex:
		return color.New(color.FgRed)
	}
	return color.New(color.FgYellow)
}

func opSymbol(t diff.OperationType) string {
	switch t {
	case diff.CreateTable, diff.AddColumn, diff.AddIndex:
		return "➕"
	case diff.DropTable, diff.DropColumn, diff.DropIndex:
		return "❌"
	}
	return "⚡"
}

func showTextDiff(w io.Writer, ops []diff.Operation) {
	fmt.Fprintf(w, "📋 %d planned operations:\n", len(ops))
	for i, op := range ops {
		opColor(op.Type).Fprintf(w, "  %d. %s %s\n", i+1, opSymbol(op.Type), op.Describe())
	}
	printSummary(w, ops)
}

// showVisualDiff groups operations by table, keeping the plan order within each table.
func showVisualDiff(w io.Writer, ops []diff.Operation) {
	fmt.Fprintln(w, "🌳 Schema Changes (Visual Diff)")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	var tables []string
	byTable := make(map[string][]diff.Operation)
	for _, op := range ops {
		if _, ok := byTable[op.TableName]; !ok {
			tables = append(tables, op.TableName)
		}
		byTable[op.TableName] = append(byTable[op.TableName], op)
	}

	bold := color.New(color.Bold)
	for _, table := range tables {
		bold.Fprintf(w, "\n📦 %s\n", table)
		tableOps := byTable[table]
		for i, op := range tableOps {
			branch := "├──"
			if i == len(tableOps)-1 {
				branch = "└──"
			}
			opColor(op.Type).Fprintf(w, "  %s %s %s\n", branch, opSymbol(op.Type), op.Describe())
		}
	}
	printSummary(w, ops)
}

func printSummary(w io.Writer, ops []diff.Operation) {
	counts := diff.Summary(ops)
	var parts []string
	for _, t := range diff.OperationTypes {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "\n📊 Summary: no SQL changes")
		return
	}
	fmt.Fprintf(w, "\n📊 Summary: %s\n", strings.Join(parts, ", "))
}

func init() {
	diffCmd.Flags().BoolVarP(&diffVisual, "visual", "v", false, "Show differences grouped per table")
	diffCmd.Flags().StringVarP(&diffModelsDir, "models", "m", "", "Models directory to load tagged structs from instead of the schema file")
}
