package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	upMarker        = "-- Up Migration"
	downMarker      = "-- Down Migration (Rollback)"
	downUnderline   = "-- ======================="
	migrationSuffix = "_migration.sql"
)

// MigrationFileName is the file name of the migration written for version.
func MigrationFileName(version int) string {
	return fmt.Sprintf("%04d%s", version, migrationSuffix)
}

// ParseMigrationVersion extracts the version from a migration file name.
func ParseMigrationVersion(name string) (int, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, migrationSuffix) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(base, migrationSuffix))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// WriteMigrationFile saves the SQL statements into a numbered .sql file with up/down sections.
func WriteMigrationFile(dir string, version int, sqlStatements, rollbackStatements []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	filename := filepath.Join(dir, MigrationFileName(version))

	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration: %04d\n", version)
	fmt.Fprintf(&b, "-- Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString(upMarker + "\n")
	b.WriteString("-- ============\n")
	for _, stmt := range sqlStatements {
		b.WriteString(stmt + "\n")
	}

	b.WriteString("\n" + downMarker + "\n")
	b.WriteString(downUnderline + "\n")
	for _, stmt := range rollbackStatements {
		b.WriteString(stmt + "\n")
	}

	if err := os.WriteFile(filename, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return filename, nil
}

// ParseMigrationFile splits migration file content into its up and down SQL.
func ParseMigrationFile(content string) (string, string, error) {
	up, down, ok := strings.Cut(content, downMarker)
	if !ok {
		return "", "", fmt.Errorf("migration does not contain rollback section")
	}

	_, up, ok = strings.Cut(up, upMarker)
	if !ok {
		return "", "", fmt.Errorf("migration does not contain up migration section")
	}
	up = strings.TrimPrefix(strings.TrimSpace(up), "-- ============")

	_, down, ok = strings.Cut(down, downUnderline)
	if !ok {
		return "", "", fmt.Errorf("migration does not contain valid rollback section")
	}

	return strings.TrimSpace(up), strings.TrimSpace(down), nil
}
