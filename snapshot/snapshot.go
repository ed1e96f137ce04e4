// Package snapshot keeps the numbered schema snapshots and migration files of a project.
//
// Version n is stored as two files in Dir: <n>.schema.yaml, the desired model at the time,
// and <n>_migration.sql, the SQL moving the database from version n-1 to n. Versions are
// consecutive from 1.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/relational/diff"
	"github.com/ridoystarlord/relational/generator"
	"github.com/ridoystarlord/relational/loader"
	"github.com/ridoystarlord/relational/schema"
)

const snapshotSuffix = ".schema.yaml"

// FileName is the name of the snapshot written for version.
func FileName(version int) string {
	return fmt.Sprintf("%04d%s", version, snapshotSuffix)
}

// State of the latest snapshot compared with a desired model.
type State int

const (
	NoSnapshot State = iota
	UpToDate
	Differs
)

func (s State) String() string {
	switch s {
	case NoSnapshot:
		return "no snapshot"
	case UpToDate:
		return "up to date"
	case Differs:
		return "differs"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Store reads and writes snapshots in Dir.
type Store struct {
	Dir     string
	Dialect generator.Dialect
	Logger  zerolog.Logger
}

func New(dir string, d generator.Dialect, logger zerolog.Logger) *Store {
	return &Store{Dir: dir, Dialect: d, Logger: logger}
}

func (s *Store) path(version int) string {
	return filepath.Join(s.Dir, FileName(version))
}

// Latest loads the newest snapshot. Without any snapshot it returns version 0 and an
// empty model.
func (s *Store) Latest() (int, *schema.Model, error) {
	version := 0
	for {
		_, err := os.Stat(s.path(version + 1))
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("stat snapshot %04d: %w", version+1, err)
		}
		version++
	}
	if version == 0 {
		return 0, schema.NewModel(nil, nil), nil
	}

	m, err := loader.LoadModelFromYAML(s.path(version))
	if err != nil {
		return 0, nil, fmt.Errorf("load snapshot %04d: %w", version, err)
	}
	return version, m, nil
}

// Comparison is the outcome of comparing the latest snapshot with a desired model.
type Comparison struct {
	State      State
	Version    int
	Previous   *schema.Model
	Desired    *schema.Model
	Diff       *schema.ModelDiff
	Operations []diff.Operation
}

// Compare diffs desired against the latest snapshot and plans the migration between them.
func (s *Store) Compare(desired *schema.Model) (*Comparison, error) {
	version, previous, err := s.Latest()
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		State:    Differs,
		Version:  version,
		Previous: previous,
		Desired:  desired,
	}
	switch {
	case version == 0:
		c.State = NoSnapshot
	case previous.Equal(desired):
		c.State = UpToDate
		return c, nil
	}

	c.Diff = previous.Diff(desired)
	c.Operations, err = diff.Plan(c.Diff)
	if err != nil {
		return nil, fmt.Errorf("planning migration: %w", err)
	}
	return c, nil
}

// Result describes a generated version.
type Result struct {
	*Comparison
	Up            []string
	Down          []string
	Version       int
	SnapshotPath  string
	MigrationPath string
}

// Generate checks desired, compares it with the latest snapshot and, when they differ,
// writes the next snapshot and its migration. With dryRun nothing is written.
func (s *Store) Generate(desired *schema.Model, dryRun bool) (*Result, error) {
	if err := desired.Check(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	c, err := s.Compare(desired)
	if err != nil {
		return nil, err
	}
	res := &Result{Comparison: c, Version: c.Version}
	if c.State == UpToDate {
		s.Logger.Debug().Int("version", c.Version).Msg("schema matches latest snapshot")
		return res, nil
	}

	res.Up, err = generator.GenerateSQL(c.Operations, s.Dialect)
	if err != nil {
		return nil, fmt.Errorf("generating SQL: %w", err)
	}
	res.Down, err = generator.GenerateRollbackSQL(c.Operations, s.Dialect)
	if err != nil {
		return nil, fmt.Errorf("generating rollback SQL: %w", err)
	}
	res.Version = c.Version + 1
	if dryRun {
		return res, nil
	}

	doc, err := loader.DumpModel(desired)
	if err != nil {
		return nil, err
	}
	res.MigrationPath, err = generator.WriteMigrationFile(s.Dir, res.Version, res.Up, res.Down)
	if err != nil {
		return nil, err
	}
	res.SnapshotPath = s.path(res.Version)
	if err := os.WriteFile(res.SnapshotPath, doc, 0o644); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}

	s.Logger.Info().
		Int("version", res.Version).
		Int("operations", len(c.Operations)).
		Str("migration", res.MigrationPath).
		Msg("snapshot written")
	return res, nil
}
