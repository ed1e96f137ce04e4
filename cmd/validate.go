package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the schema",
	Long: `Validate your schema for structural consistency and best practices.

This command performs:
- Structural checks (duplicate relations and fields, unknown index fields,
  dangling references, relationships to unknown relations)
- Table and column naming (PostgreSQL identifier rules, reserved keywords)
- Reference type agreement

The validator works in two modes:
- Offline: Validates the schema only (no database required)
- Online: Also reports tables that already exist (requires DATABASE_URL)

Examples:
  relational validate                    # Validate schema.yaml
  relational validate -f custom.yaml     # Validate custom schema file
  relational validate -m models/         # Validate tagged Go structs
  relational validate --format json      # Output validation results as JSON
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadDesired(validateModelsDir)
		if err != nil {
			return err
		}

		var result *validator.ValidationResult
		if cfg.DatabaseURL == "" {
			logger.Debug().Msg("DATABASE_URL not set, using offline schema validation")
			result = validator.Validate(desired)
		} else {
			ctx := cmd.Context()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			if result, err = validator.ValidateAgainst(ctx, desired, db); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if validateFormat == "json" {
			err = outputJSON(out, result)
		} else {
			outputText(out, result)
		}
		if err != nil {
			return err
		}
		if !result.Valid {
			return errors.New("schema validation failed")
		}
		return nil
	},
}

var (
	validateModelsDir string
	validateFormat    string
)

func init() {
	validateCmd.Flags().StringVarP(&validateModelsDir, "models", "m", "", "Models directory to load tagged structs from instead of the schema file")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
}

func outputJSON(w io.Writer, result *validator.ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(w io.Writer, result *validator.ValidationResult) {
	if result.Valid {
		color.New(color.FgGreen).Fprintln(w, "✅ Schema validation passed!")
	} else {
		color.New(color.FgRed).Fprintln(w, "❌ Schema validation failed!")
	}

	printFindings(w, "🔴 Errors", result.Errors)
	printFindings(w, "🟡 Warnings", result.Warnings)
	printFindings(w, "🔵 Info", result.Info)

	fmt.Fprintf(w, "\n📊 Summary:\n")
	fmt.Fprintf(w, "  • Errors: %d\n", len(result.Errors))
	fmt.Fprintf(w, "  • Warnings: %d\n", len(result.Warnings))
	fmt.Fprintf(w, "  • Info: %d\n", len(result.Info))

	if result.Valid {
		fmt.Fprintf(w, "\n🎉 Your schema is valid and ready for migration generation!\n")
	} else {
		fmt.Fprintf(w, "\n💡 Fix the errors above before generating migrations.\n")
	}
}

func printFindings(w io.Writer, title string, findings []validator.ValidationError) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(findings))
	for i, f := range findings {
		fmt.Fprintf(w, "  %d. ", i+1)
		if f.Table != "" {
			fmt.Fprintf(w, "[%s]", f.Table)
		}
		if f.Column != "" {
			fmt.Fprintf(w, ".%s", f.Column)
		}
		fmt.Fprintf(w, ": %s\n", f.Message)
	}
}
