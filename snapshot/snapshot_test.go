package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/relational/diff"
	"github.com/ridoystarlord/relational/generator"
	"github.com/ridoystarlord/relational/schema"
)

func model(t *testing.T, fn func(b *schema.Builder)) *schema.Model {
	t.Helper()
	b := schema.NewBuilder()
	fn(b)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func usersV1(b *schema.Builder) {
	b.Relation("users", func(r *schema.RelationBuilder) {
		r.Primary()
		r.String("name")
	})
}

func usersV2(b *schema.Builder) {
	b.Relation("users", func(r *schema.RelationBuilder) {
		r.Primary()
		r.String("name")
		r.String("email", schema.Nullable())
		r.UniqueIndex("email")
	})
}

func TestGenerateWorkflow(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, generator.Postgres{}, zerolog.Nop())

	version, latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Empty(t, latest.Relations())

	res, err := store.Generate(model(t, usersV1), false)
	require.NoError(t, err)
	assert.Equal(t, NoSnapshot, res.State)
	assert.Equal(t, 1, res.Version)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, diff.CreateTable, res.Operations[0].Type)
	assert.FileExists(t, filepath.Join(dir, "0001.schema.yaml"))
	assert.FileExists(t, filepath.Join(dir, "0001_migration.sql"))

	res, err = store.Generate(model(t, usersV1), false)
	require.NoError(t, err)
	assert.Equal(t, UpToDate, res.State)
	assert.Equal(t, 1, res.Version)
	assert.Empty(t, res.MigrationPath)

	res, err = store.Generate(model(t, usersV2), false)
	require.NoError(t, err)
	assert.Equal(t, Differs, res.State)
	assert.Equal(t, 2, res.Version)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ADD COLUMN "email" VARCHAR(100);`,
		`CREATE UNIQUE INDEX "uniq_users_email" ON "users" ("email");`,
	}, res.Up)
	assert.Equal(t, []string{
		`DROP INDEX IF EXISTS "uniq_users_email";`,
		`ALTER TABLE "users" DROP COLUMN "email";`,
	}, res.Down)

	version, latest, err = store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.True(t, latest.Equal(model(t, usersV2)))
}

func TestGenerateDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, generator.SQLite{}, zerolog.Nop())

	res, err := store.Generate(model(t, usersV1), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.NotEmpty(t, res.Up)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateRejectsInvalidSchema(t *testing.T) {
	store := New(t.TempDir(), generator.Postgres{}, zerolog.Nop())
	bad := model(t, func(b *schema.Builder) {
		b.Relation("a", func(r *schema.RelationBuilder) { r.Text("x"); r.Index("y") })
	})

	_, err := store.Generate(bad, false)
	assert.ErrorIs(t, err, schema.ErrUnknownIndexField)
}

func TestGeneratePlanningFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, generator.Postgres{}, zerolog.Nop())
	_, err := store.Generate(model(t, usersV1), false)
	require.NoError(t, err)

	changedKey := model(t, func(b *schema.Builder) {
		b.Relation("users", func(r *schema.RelationBuilder) {
			r.Integer("id")
			r.String("name")
			r.PrimaryKey("id")
		})
	})
	_, err = store.Generate(changedKey, false)
	assert.ErrorIs(t, err, diff.ErrPrimaryKeyChange)
	assert.NoFileExists(t, filepath.Join(dir, "0002.schema.yaml"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no snapshot", NoSnapshot.String())
	assert.Equal(t, "differs", Differs.String())
	assert.Equal(t, "State(9)", State(9).String())
}
