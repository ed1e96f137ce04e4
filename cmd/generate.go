package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/snapshot"
)

var generateModelsDir string
var dryRunGenerate bool

func init() {
	generateCmd.Flags().StringVarP(&generateModelsDir, "models", "m", "", "Models directory to load tagged structs from instead of the schema file")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the SQL that would be generated without writing files")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Snapshot the schema and generate the next migration",
	Long: `Compare the schema with the latest snapshot and, when they differ, write
the next snapshot (NNNN.schema.yaml) and its migration (NNNN_migration.sql).

Examples:
  relational generate                  # Generate from schema.yaml
  relational generate -f custom.yaml   # Generate from a custom YAML file
  relational generate -m models/       # Generate from tagged Go structs
  relational generate --dry-run        # Preview without writing files
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadDesired(generateModelsDir)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}

		res, err := store.Generate(desired, dryRunGenerate)
		if err != nil {
			return err
		}
		printGenerateResult(cmd.OutOrStdout(), res, dryRunGenerate)
		return nil
	},
}

func printGenerateResult(w io.Writer, res *snapshot.Result, dryRun bool) {
	if res.State == snapshot.UpToDate {
		fmt.Fprintf(w, "✅ No changes detected (schema matches snapshot %04d).\n", res.Version)
		return
	}

	if dryRun {
		fmt.Fprintln(w, "\n================ DRY RUN: Migration Preview ================")
		fmt.Fprintln(w, "-- Up Migration SQL --")
		for _, stmt := range res.Up {
			fmt.Fprintln(w, stmt)
		}
		fmt.Fprintln(w, "\n-- Down Migration (Rollback) SQL --")
		for _, stmt := range res.Down {
			fmt.Fprintln(w, stmt)
		}
		fmt.Fprintln(w, "============================================================")
		fmt.Fprintf(w, "(Dry run only. Version %04d was not written.)\n", res.Version)
		return
	}

	if len(res.Operations) == 0 {
		color.New(color.FgYellow).Fprintln(w, "⚠️  Schema changed without any SQL effect (field order only).")
	}
	fmt.Fprintln(w, "✅ Snapshot written:", res.SnapshotPath)
	fmt.Fprintln(w, "✅ Migration generated:", res.MigrationPath)
}
