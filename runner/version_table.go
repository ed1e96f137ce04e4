package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ridoystarlord/relational/database"
)

const versionTableName = "schema_migrations"

// MigrationRecord represents one applied migration
type MigrationRecord struct {
	Version       int
	Name          string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	ExecutedBy    string
	Checksum      string
}

// VersionTable owns the applied-version bookkeeping of one database. Callers create it
// and call Init before anything else; the version primary key makes every version apply
// at most once.
type VersionTable struct {
	db database.DB
}

func NewVersionTable(db database.DB) *VersionTable {
	return &VersionTable{db: db}
}

// Init creates the table when missing.
func (vt *VersionTable) Init(ctx context.Context) error {
	err := vt.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS `+versionTableName+` (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		execution_ms BIGINT NOT NULL,
		executed_by TEXT NOT NULL,
		checksum TEXT NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", versionTableName, err)
	}
	return nil
}

// Current is the highest applied version, 0 when nothing was applied.
func (vt *VersionTable) Current(ctx context.Context) (int, error) {
	rows, err := vt.db.Query(ctx, `SELECT COALESCE(MAX(version), 0) FROM `+versionTableName)
	if err != nil {
		return 0, fmt.Errorf("query current version: %w", err)
	}
	defer rows.Close()

	var version int64
	if rows.Next() {
		if err := rows.Scan(&version); err != nil {
			return 0, fmt.Errorf("scan current version: %w", err)
		}
	}
	return int(version), rows.Err()
}

// Applied lists applied migrations, oldest first.
func (vt *VersionTable) Applied(ctx context.Context) ([]MigrationRecord, error) {
	return vt.query(ctx, `ORDER BY version ASC`)
}

// History lists applied migrations, newest first; limit <= 0 means all.
func (vt *VersionTable) History(ctx context.Context, limit int) ([]MigrationRecord, error) {
	if limit > 0 {
		return vt.query(ctx, `ORDER BY version DESC LIMIT $1`, limit)
	}
	return vt.query(ctx, `ORDER BY version DESC`)
}

func (vt *VersionTable) query(ctx context.Context, suffix string, args ...any) ([]MigrationRecord, error) {
	rows, err := vt.db.Query(ctx, `
		SELECT version, name, applied_at, execution_ms, executed_by, checksum
		FROM `+versionTableName+` `+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		var version, ms int64
		if err := rows.Scan(&version, &record.Name, &record.AppliedAt, &ms, &record.ExecutedBy, &record.Checksum); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		record.Version = int(version)
		record.ExecutionTime = time.Duration(ms) * time.Millisecond
		records = append(records, record)
	}
	return records, rows.Err()
}

func (vt *VersionTable) record(ctx context.Context, tx database.Tx, rec MigrationRecord) error {
	err := tx.Exec(ctx, `
		INSERT INTO `+versionTableName+` (version, name, applied_at, execution_ms, executed_by, checksum)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Version, rec.Name, rec.AppliedAt.UTC(), rec.ExecutionTime.Milliseconds(), rec.ExecutedBy, rec.Checksum)
	if err != nil {
		return fmt.Errorf("recording migration %04d: %w", rec.Version, err)
	}
	return nil
}

func (vt *VersionTable) remove(ctx context.Context, tx database.Tx, version int) error {
	if err := tx.Exec(ctx, `DELETE FROM `+versionTableName+` WHERE version = $1`, version); err != nil {
		return fmt.Errorf("removing migration record %04d: %w", version, err)
	}
	return nil
}
