package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/relational/database"
	"github.com/ridoystarlord/relational/generator"
)

func setup(t *testing.T) (*Runner, database.DB, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.OpenSQLite(ctx, filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrations := filepath.Join(dir, "migrations")
	return New(db, migrations, zerolog.Nop()), db, migrations
}

func writeMigration(t *testing.T, dir string, version int, up, down []string) {
	t.Helper()
	_, err := generator.WriteMigrationFile(dir, version, up, down)
	require.NoError(t, err)
}

func tableExists(t *testing.T, db database.DB, name string) bool {
	t.Helper()
	rows, err := db.Query(context.Background(), `SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, name)
	require.NoError(t, err)
	defer rows.Close()
	return rows.Next()
}

func TestApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	r, db, dir := setup(t)

	writeMigration(t, dir, 1,
		[]string{`CREATE TABLE "users" ("users_id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL);`},
		[]string{`DROP TABLE IF EXISTS "users";`})
	writeMigration(t, dir, 2,
		[]string{`CREATE TABLE "orders" ("orders_id" INTEGER PRIMARY KEY AUTOINCREMENT);`, `CREATE INDEX "idx_orders_orders_id" ON "orders" ("orders_id");`},
		[]string{`DROP INDEX IF EXISTS "idx_orders_orders_id";`, `DROP TABLE IF EXISTS "orders";`})

	pending, err := r.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	applied, err := r.Apply(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.True(t, tableExists(t, db, "users"))
	assert.True(t, tableExists(t, db, "orders"))

	current, err := r.Versions().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, current)

	records, err := r.Versions().Applied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0001_migration.sql", records[0].Name)
	assert.Equal(t, applied[0].Checksum, records[0].Checksum)
	assert.NotEmpty(t, records[0].ExecutedBy)
	assert.False(t, records[0].AppliedAt.IsZero())

	again, err := r.Apply(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "applied versions are not applied twice")

	reverted, err := r.Rollback(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reverted, 1)
	assert.Equal(t, 2, reverted[0].Version)
	assert.False(t, tableExists(t, db, "orders"))
	assert.True(t, tableExists(t, db, "users"))

	current, err = r.Versions().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
}

func TestApplyFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	r, db, dir := setup(t)

	writeMigration(t, dir, 1,
		[]string{`CREATE TABLE "a" ("x" TEXT);`},
		[]string{`DROP TABLE IF EXISTS "a";`})
	writeMigration(t, dir, 2,
		[]string{`CREATE TABLE "b" ("y" TEXT);`, `INSERT INTO "missing" VALUES (1);`},
		[]string{`DROP TABLE IF EXISTS "b";`})

	applied, err := r.Apply(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_migration.sql")
	require.Len(t, applied, 1)

	assert.True(t, tableExists(t, db, "a"))
	assert.False(t, tableExists(t, db, "b"), "failed migration leaves nothing behind")

	current, err := r.Versions().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	r, _, dir := setup(t)

	writeMigration(t, dir, 1, []string{`CREATE TABLE "a" ("x" TEXT);`}, []string{`DROP TABLE IF EXISTS "a";`})
	_, err := r.Apply(ctx)
	require.NoError(t, err)

	writeMigration(t, dir, 2, []string{`CREATE TABLE "b" ("y" TEXT);`}, []string{`DROP TABLE IF EXISTS "b";`})

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Current)
	assert.Len(t, st.Applied, 1)
	require.Len(t, st.Pending, 1)
	assert.Equal(t, 2, st.Pending[0].Version)
	assert.Empty(t, st.Modified)

	// edit the applied file
	writeMigration(t, dir, 1, []string{`CREATE TABLE "a" ("x" TEXT, "z" TEXT);`}, []string{`DROP TABLE IF EXISTS "a";`})
	st, err = r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Modified, 1)
	assert.Equal(t, 1, st.Modified[0].Version)

	require.NoError(t, os.Remove(filepath.Join(dir, generator.MigrationFileName(1))))
	st, err = r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Missing, 1)

	_, err = r.Rollback(ctx, 1)
	assert.ErrorIs(t, err, ErrMissingMigration)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	r, db, dir := setup(t)
	writeMigration(t, dir, 1, []string{`CREATE TABLE "a" ("x" TEXT);`}, []string{`DROP TABLE IF EXISTS "a";`})

	var out bytes.Buffer
	pending, err := r.Preview(ctx, &out)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Contains(t, out.String(), `CREATE TABLE "a"`)
	assert.Contains(t, out.String(), `DROP TABLE IF EXISTS "a"`)
	assert.False(t, tableExists(t, db, "a"))
}

func TestLoadMigrationsSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, 2, []string{"SELECT 2;"}, nil)
	writeMigration(t, dir, 1, []string{"SELECT 1;"}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.schema.yaml"), []byte("relations: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.sql"), []byte("--"), 0o644))

	migrations, err := LoadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "SELECT 1;", migrations[0].Up)

	none, err := LoadMigrations(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
