package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/relational/loader"
)

// run executes the root command inside the current directory against a SQLite database.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// command flags are package variables and survive between executions
	dryRunGenerate, dryRunMigrate = false, false
	steps, historyLimit, historyTable, historyDetailed = 1, 0, "", false
	generateModelsDir, validateModelsDir, diffModelsDir, docsModelsDir = "", "", "", ""
	docsFormat, docsOutput, validateFormat, diffVisual, useStructs = "plantuml", "", "text", false, false

	base := []string{
		"--env-file", ".env",
		"--schema", "schema.yaml",
		"--migrations", "migrations",
		"--database-url", "sqlite://app.db",
		"--log-level", "error",
	}
	var out bytes.Buffer
	rootCmd.SetArgs(append(base, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupProject(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"DATABASE_URL", "RELATIONAL_SCHEMA", "RELATIONAL_MIGRATIONS", "RELATIONAL_DIALECT", "RELATIONAL_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestTemplatesAreValid(t *testing.T) {
	m, err := loader.ParseModel([]byte(schemaTemplate))
	require.NoError(t, err)
	require.NoError(t, m.Check())
	assert.Len(t, m.Relations(), 4)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.go"), []byte(modelsTemplate), 0o644))
	m, err = loader.LoadModelFromTags(dir)
	require.NoError(t, err)
	require.NoError(t, m.Check())
	assert.NotNil(t, m.RelationByName("authors"))
	assert.NotNil(t, m.RelationByName("books"))
}

func TestWorkflow(t *testing.T) {
	setupProject(t)

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created schema.yaml")
	assert.FileExists(t, ".env")
	assert.DirExists(t, "migrations")

	out, err = run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema validation passed")

	out, err = run(t, "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "create table authors")
	assert.Contains(t, out, "create table rel_books_tags")

	out, err = run(t, "generate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN")
	assert.NoFileExists(t, filepath.Join("migrations", "0001_migration.sql"))

	out, err = run(t, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration generated")
	assert.FileExists(t, filepath.Join("migrations", "0001_migration.sql"))
	assert.FileExists(t, filepath.Join("migrations", "0001.schema.yaml"))

	out, err = run(t, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes detected")

	out, err = run(t, "migrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "authors"`)

	out, err = run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied: 0001_migration.sql")

	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0001")
	assert.Contains(t, out, "0001_migration.sql")

	out, err = run(t, "history", "--table", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_migration.sql")

	out, err = run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "consistent with the database")

	_, err = run(t, "docs", "--format", "mermaid", "--output", "erd.md")
	require.NoError(t, err)
	erd, err := os.ReadFile("erd.md")
	require.NoError(t, err)
	assert.Contains(t, string(erd), "authors ||--o{ books : authors_id")

	out, err = run(t, "rollback")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back 1 migration.")

	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0000")
}

func TestValidateFailsOnBrokenSchema(t *testing.T) {
	setupProject(t)
	broken := "relations:\n  - name: books\n    primary: true\n    indexes: [[missing]]\n"
	require.NoError(t, os.WriteFile("schema.yaml", []byte(broken), 0o644))

	out, err := run(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "index references unknown field")

	_, err = run(t, "generate")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join("migrations", "0001.schema.yaml"))
}

func TestRollbackRejectsZeroSteps(t *testing.T) {
	setupProject(t)
	_, err := run(t, "rollback", "--steps", "0")
	assert.ErrorContains(t, err, "steps must be at least 1")
}
