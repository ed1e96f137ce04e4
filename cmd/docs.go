package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/schema"
)

var (
	docsFormat    string
	docsOutput    string
	docsModelsDir string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate ERD diagrams from the schema",
	Long: `Generate ERD diagrams from your schema, including the foreign keys and
junction tables added by relationships.

Supported formats:
  - plantuml: PlantUML ERD diagram
  - mermaid: Mermaid ERD diagram
  - all: both, written into the output directory

Examples:
  relational docs --format plantuml --output erd.puml
  relational docs --format mermaid --output erd.md
  relational docs --format all --output docs/
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadDesired(docsModelsDir)
		if err != nil {
			return err
		}
		if len(m.Relations()) == 0 {
			return fmt.Errorf("no relations found in schema")
		}

		out := cmd.OutOrStdout()
		write := func(path, content string) error {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("error writing %s: %w", path, err)
			}
			fmt.Fprintf(out, "✅ ERD saved to: %s\n", path)
			return nil
		}

		switch docsFormat {
		case "plantuml":
			return write(orDefault(docsOutput, "erd.puml"), generatePlantUMLContent(m))
		case "mermaid":
			return write(orDefault(docsOutput, "erd.md"), generateMermaidContent(m))
		case "all":
			dir := orDefault(docsOutput, "docs")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating output directory: %w", err)
			}
			if err := write(filepath.Join(dir, "erd.puml"), generatePlantUMLContent(m)); err != nil {
				return err
			}
			return write(filepath.Join(dir, "erd.md"), generateMermaidContent(m))
		}
		return fmt.Errorf("unsupported format: %s (supported: plantuml, mermaid, all)", docsFormat)
	},
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// columnMarkers lists the key and not-null markers of a field.
func columnMarkers(r *schema.Relation, f *schema.Field) []string {
	var markers []string
	for _, pk := range r.PrimaryKey {
		if pk == f.Name {
			markers = append(markers, "PK")
		}
	}
	if f.References != nil {
		markers = append(markers, "FK")
	}
	for _, idx := range r.UniqueIndexes {
		if len(idx) == 1 && idx[0] == f.Name {
			markers = append(markers, "UQ")
		}
	}
	if !f.Nullable {
		markers = append(markers, "NN")
	}
	return markers
}

func displayType(f *schema.Field) string {
	return strings.ToUpper(string(f.Type))
}

func generatePlantUMLContent(m *schema.Model) string {
	var content strings.Builder

	content.WriteString("@startuml\n")
	content.WriteString("!theme plain\n")
	content.WriteString("skinparam linetype ortho\n\n")

	for _, r := range m.Relations() {
		content.WriteString(fmt.Sprintf("entity \"%s\" {\n", r.Name))
		for _, f := range r.Fields {
			line := fmt.Sprintf("  %s : %s", f.Name, displayType(f))
			for _, marker := range columnMarkers(r, f) {
				line += " <<" + marker + ">>"
			}
			if f.Default != nil {
				line += fmt.Sprintf(" <<DEFAULT: %s>>", *f.Default)
			}
			content.WriteString(line + "\n")
		}
		content.WriteString("}\n\n")
	}

	for _, r := range m.Relations() {
		for _, f := range r.Fields {
			if f.References != nil {
				content.WriteString(fmt.Sprintf("\"%s\" ||--o{ \"%s\" : \"%s\"\n", f.References.Relation, r.Name, f.Name))
			}
		}
	}

	content.WriteString("@enduml\n")
	return content.String()
}

func generateMermaidContent(m *schema.Model) string {
	var content strings.Builder

	content.WriteString("# Database Schema ERD\n\n")
	content.WriteString("```mermaid\nerDiagram\n")

	for _, r := range m.Relations() {
		content.WriteString(fmt.Sprintf("    %s {\n", r.Name))
		for _, f := range r.Fields {
			line := fmt.Sprintf("        %s %s", displayType(f), f.Name)
			// mermaid accepts a single comma separated key list
			var keys []string
			for _, marker := range columnMarkers(r, f) {
				if marker == "PK" || marker == "FK" || marker == "UQ" {
					keys = append(keys, marker)
				}
			}
			if len(keys) > 0 {
				line += " " + strings.Join(keys, ",")
			}
			if f.Comment != "" {
				line += fmt.Sprintf(" \"%s\"", f.Comment)
			}
			content.WriteString(line + "\n")
		}
		content.WriteString("    }\n")
	}

	for _, r := range m.Relations() {
		for _, f := range r.Fields {
			if f.References != nil {
				content.WriteString(fmt.Sprintf("    %s ||--o{ %s : %s\n", f.References.Relation, r.Name, f.Name))
			}
		}
	}

	content.WriteString("```\n")
	return content.String()
}

func init() {
	docsCmd.Flags().StringVar(&docsFormat, "format", "plantuml", "Output format (plantuml, mermaid, all)")
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output file or directory (default: format-specific filename)")
	docsCmd.Flags().StringVarP(&docsModelsDir, "models", "m", "", "Models directory to load tagged structs from instead of the schema file")
}
