package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/relational/diff"
	"github.com/ridoystarlord/relational/schema"
)

func field(t *testing.T, name string, ft schema.FieldType, opts ...schema.FieldOption) *schema.Field {
	t.Helper()
	f, err := schema.NewField(name, ft, opts...)
	require.NoError(t, err)
	return f
}

func TestGenerateCreateTable(t *testing.T) {
	id := field(t, "id", schema.Integer)
	ops := []diff.Operation{{
		Type:       diff.CreateTable,
		TableName:  "orders",
		PrimaryKey: "id",
		Field:      id,
		Fields: []*schema.Field{
			field(t, "user_id", schema.Integer, schema.References("users", "id")),
			field(t, "state", schema.Enum, schema.Values("new", "paid"), schema.Default("new")),
			field(t, "total", schema.Price, schema.Nullable(), schema.Comment("gross")),
		},
	}}

	stmts, err := GenerateSQL(ops, Postgres{})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE TABLE "orders" (
  "id" SERIAL PRIMARY KEY,
  "user_id" INTEGER NOT NULL CONSTRAINT "fk_orders_user_id" REFERENCES "users" ("id"),
  "state" TEXT NOT NULL DEFAULT 'new' CONSTRAINT "chk_orders_state" CHECK ("state" IN ('new', 'paid')),
  "total" NUMERIC(12,2)
);`, stmts[0])
	assert.Equal(t, `COMMENT ON COLUMN "orders"."total" IS 'gross';`, stmts[1])

	stmts, err = GenerateSQL(ops, SQLite{})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
}

func TestGenerateIndexes(t *testing.T) {
	ops := []diff.Operation{
		{Type: diff.AddIndex, TableName: "users", Index: schema.Index{"name", "age"}},
		{Type: diff.DropIndex, TableName: "users", Index: schema.Index{"email"}, Unique: true},
	}

	stmts, err := GenerateSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE INDEX "idx_users_name_age" ON "users" ("name", "age");`,
		`DROP INDEX IF EXISTS "uniq_users_email";`,
	}, stmts)

	rollback, err := GenerateRollbackSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE UNIQUE INDEX "uniq_users_email" ON "users" ("email");`,
		`DROP INDEX IF EXISTS "idx_users_name_age";`,
	}, rollback)
}

func TestGenerateColumns(t *testing.T) {
	name := field(t, "name", schema.String)
	ops := []diff.Operation{
		{Type: diff.AddColumn, TableName: "users", Field: field(t, "active", schema.Boolean, schema.Default("true"))},
		{Type: diff.DropColumn, TableName: "users", FieldName: "name", Previous: name},
	}

	stmts, err := GenerateSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ADD COLUMN "active" BOOLEAN NOT NULL DEFAULT true;`,
		`ALTER TABLE "users" DROP COLUMN "name";`,
	}, stmts)

	rollback, err := GenerateRollbackSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ADD COLUMN "name" VARCHAR(100) NOT NULL;`,
		`ALTER TABLE "users" DROP COLUMN "active";`,
	}, rollback)
}

func TestGenerateChangeColumn(t *testing.T) {
	old := field(t, "name", schema.String)
	changed := field(t, "name", schema.String, schema.Size(200), schema.Nullable(), schema.Default("anon"))
	ops := []diff.Operation{{Type: diff.ChangeColumn, TableName: "users", Field: changed, Previous: old}}

	stmts, err := GenerateSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ALTER COLUMN "name" TYPE VARCHAR(200);`,
		`ALTER TABLE "users" ALTER COLUMN "name" DROP NOT NULL;`,
		`ALTER TABLE "users" ALTER COLUMN "name" SET DEFAULT 'anon';`,
	}, stmts)

	rollback, err := GenerateRollbackSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ALTER COLUMN "name" TYPE VARCHAR(100);`,
		`ALTER TABLE "users" ALTER COLUMN "name" SET NOT NULL;`,
		`ALTER TABLE "users" ALTER COLUMN "name" DROP DEFAULT;`,
	}, rollback)

	_, err = GenerateSQL(ops, SQLite{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGenerateChangeEnumAndComment(t *testing.T) {
	old := field(t, "state", schema.Enum, schema.Values("a"))
	changed := field(t, "state", schema.Enum, schema.Values("a", "b"), schema.Comment("lifecycle"))
	ops := []diff.Operation{{Type: diff.ChangeColumn, TableName: "jobs", Field: changed, Previous: old}}

	stmts, err := GenerateSQL(ops, Postgres{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "jobs" DROP CONSTRAINT IF EXISTS "chk_jobs_state";`,
		`ALTER TABLE "jobs" ADD CONSTRAINT "chk_jobs_state" CHECK ("state" IN ('a', 'b'));`,
		`COMMENT ON COLUMN "jobs"."state" IS 'lifecycle';`,
	}, stmts)

	commentOnly := []diff.Operation{{
		Type:      diff.ChangeColumn,
		TableName: "jobs",
		Field:     field(t, "state", schema.Enum, schema.Values("a"), schema.Comment("x")),
		Previous:  old,
	}}
	stmts, err = GenerateSQL(commentOnly, SQLite{})
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestRollbackDropTableRecreates(t *testing.T) {
	m, err := schema.NewBuilder().
		Relation("tags", func(r *schema.RelationBuilder) {
			r.Primary()
			r.String("label")
			r.UniqueIndex("label")
		}).
		Build()
	require.NoError(t, err)
	rel := m.Relations()[0]

	ops := []diff.Operation{{Type: diff.DropTable, TableName: "tags", Relation: rel}}
	stmts, err := GenerateSQL(ops, SQLite{})
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "tags";`}, stmts)

	rollback, err := GenerateRollbackSQL(ops, SQLite{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE \"tags\" (\n  \"tags_id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n  \"label\" VARCHAR(100) NOT NULL\n);",
		`CREATE UNIQUE INDEX "uniq_tags_label" ON "tags" ("label");`,
	}, rollback)
	assert.Len(t, rel.Fields, 2, "relation is not modified")
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{"": "postgres", "PostgreSQL": "postgres", "sqlite3": "sqlite"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, d.Name())
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestMigrationFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	up := []string{`CREATE TABLE "a" (` + "\n  \"x\" TEXT\n);", `CREATE INDEX "idx_a_x" ON "a" ("x");`}
	down := []string{`DROP TABLE IF EXISTS "a";`}

	path, err := WriteMigrationFile(dir, 3, up, down)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0003_migration.sql"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	gotUp, gotDown, err := ParseMigrationFile(string(content))
	require.NoError(t, err)
	assert.Equal(t, up[0]+"\n"+up[1], gotUp)
	assert.Equal(t, down[0], gotDown)

	v, ok := ParseMigrationVersion(path)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestParseMigrationFileErrors(t *testing.T) {
	_, _, err := ParseMigrationFile("CREATE TABLE a ();")
	assert.Error(t, err)
	_, _, err = ParseMigrationFile("-- Down Migration (Rollback)\n-- =======================\n")
	assert.Error(t, err)

	_, ok := ParseMigrationVersion("0001.schema.yaml")
	assert.False(t, ok)
	_, ok = ParseMigrationVersion("abc_migration.sql")
	assert.False(t, ok)
}

func TestEmptyMigrationParses(t *testing.T) {
	path, err := WriteMigrationFile(t.TempDir(), 1, nil, nil)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	up, down, err := ParseMigrationFile(string(content))
	require.NoError(t, err)
	assert.Empty(t, up)
	assert.Empty(t, down)
}
