package runner

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/relational/database"
	"github.com/ridoystarlord/relational/generator"
)

var ErrMissingMigration = errors.New("migration file not found")

// Migration is one numbered migration file.
type Migration struct {
	Version  int
	Name     string
	Path     string
	Up       string
	Down     string
	Checksum string
}

// LoadMigrations reads every numbered migration file of dir, ordered by version.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, ok := generator.ParseMigrationVersion(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", e.Name(), err)
		}
		up, down, err := generator.ParseMigrationFile(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse migration file %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     e.Name(),
			Path:     path,
			Up:       up,
			Down:     down,
			Checksum: calculateChecksum(up),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func calculateChecksum(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

func getCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return currentUser.Username
}

// Runner applies and reverts the migration files of Dir against one database.
type Runner struct {
	Dir    string
	Logger zerolog.Logger

	db       database.DB
	versions *VersionTable
}

func New(db database.DB, dir string, logger zerolog.Logger) *Runner {
	return &Runner{
		Dir:      dir,
		Logger:   logger,
		db:       db,
		versions: NewVersionTable(db),
	}
}

// Versions exposes the version table of the runner's database.
func (r *Runner) Versions() *VersionTable { return r.versions }

// Pending lists migrations above the current version.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	if err := r.versions.Init(ctx); err != nil {
		return nil, err
	}
	current, err := r.versions.Current(ctx)
	if err != nil {
		return nil, err
	}
	all, err := LoadMigrations(r.Dir)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range all {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Apply runs every pending migration in version order. Each migration and its version row
// commit in one transaction; the first failure stops the run.
func (r *Runner) Apply(ctx context.Context) ([]Migration, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m)
	}
	return applied, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	log := r.Logger.With().Int("version", m.Version).Str("migration", m.Name).Logger()
	log.Debug().Msg("applying migration")

	startTime := time.Now()
	err := r.inTx(ctx, func(tx database.Tx) error {
		if m.Up != "" {
			if err := tx.Exec(ctx, m.Up); err != nil {
				return fmt.Errorf("executing migration %s: %w", m.Name, err)
			}
		}
		return r.versions.record(ctx, tx, MigrationRecord{
			Version:       m.Version,
			Name:          m.Name,
			AppliedAt:     startTime,
			ExecutionTime: time.Since(startTime),
			ExecutedBy:    getCurrentUser(),
			Checksum:      m.Checksum,
		})
	})
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		return err
	}

	log.Info().Dur("took", time.Since(startTime)).Msg("migration applied")
	return nil
}

// Rollback reverts the last steps applied migrations, newest first.
func (r *Runner) Rollback(ctx context.Context, steps int) ([]Migration, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	if err := r.versions.Init(ctx); err != nil {
		return nil, err
	}
	history, err := r.versions.History(ctx, steps)
	if err != nil {
		return nil, err
	}
	all, err := LoadMigrations(r.Dir)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[int]Migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}

	var reverted []Migration
	for _, rec := range history {
		m, ok := byVersion[rec.Version]
		if !ok {
			return reverted, fmt.Errorf("%w: version %04d (%s)", ErrMissingMigration, rec.Version, rec.Name)
		}
		err := r.inTx(ctx, func(tx database.Tx) error {
			if m.Down != "" {
				if err := tx.Exec(ctx, m.Down); err != nil {
					return fmt.Errorf("executing rollback for %s: %w", m.Name, err)
				}
			}
			return r.versions.remove(ctx, tx, m.Version)
		})
		if err != nil {
			r.Logger.Error().Err(err).Int("version", m.Version).Msg("rollback failed")
			return reverted, err
		}
		r.Logger.Info().Int("version", m.Version).Str("migration", m.Name).Msg("migration rolled back")
		reverted = append(reverted, m)
	}
	return reverted, nil
}

func (r *Runner) inTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.Logger.Warn().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}
	return tx.Commit(ctx)
}

// Status summarizes the migrations directory against the version table.
type Status struct {
	Current  int
	Applied  []MigrationRecord
	Pending  []Migration
	Modified []Migration // applied, but the file changed since
	Missing  []MigrationRecord
}

func (r *Runner) Status(ctx context.Context) (*Status, error) {
	if err := r.versions.Init(ctx); err != nil {
		return nil, err
	}
	current, err := r.versions.Current(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := r.versions.Applied(ctx)
	if err != nil {
		return nil, err
	}
	all, err := LoadMigrations(r.Dir)
	if err != nil {
		return nil, err
	}

	st := &Status{Current: current, Applied: applied}
	files := make(map[int]Migration, len(all))
	for _, m := range all {
		files[m.Version] = m
		if m.Version > current {
			st.Pending = append(st.Pending, m)
		}
	}
	for _, rec := range applied {
		m, ok := files[rec.Version]
		switch {
		case !ok:
			st.Missing = append(st.Missing, rec)
		case m.Checksum != rec.Checksum:
			st.Modified = append(st.Modified, m)
		}
	}
	return st, nil
}

// Preview writes the SQL of all pending migrations without applying them.
func (r *Runner) Preview(ctx context.Context, w io.Writer) ([]Migration, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range pending {
		fmt.Fprintf(w, "\n-- Migration: %s --\n", m.Name)
		fmt.Fprintln(w, "-- Up Migration SQL --")
		fmt.Fprintln(w, m.Up)
		fmt.Fprintln(w, "\n-- Down Migration (Rollback) SQL --")
		fmt.Fprintln(w, m.Down)
	}
	return pending, nil
}
