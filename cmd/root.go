package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/relational/config"
	"github.com/ridoystarlord/relational/database"
	"github.com/ridoystarlord/relational/generator"
	"github.com/ridoystarlord/relational/loader"
	"github.com/ridoystarlord/relational/logging"
	"github.com/ridoystarlord/relational/runner"
	"github.com/ridoystarlord/relational/schema"
	"github.com/ridoystarlord/relational/snapshot"
)

var (
	envFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "relational",
	Short: "Declarative relational schemas with versioned migrations",
	Long: `relational keeps a declarative schema (schema.yaml or tagged Go structs),
snapshots every version of it and generates the SQL migrations between them.

Examples:

  relational init
  relational generate
  relational migrate
  relational status
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if !cfg.EnvFileLoaded {
			logger.Debug().Str("file", envFile).Msg("no env file found, continuing")
		}
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the environment")
	flags.String("database-url", "", "Database URL (default $DATABASE_URL)")
	flags.StringP("schema", "f", "schema.yaml", "Schema YAML file ($RELATIONAL_SCHEMA)")
	flags.String("migrations", "migrations", "Directory of snapshots and migration files ($RELATIONAL_MIGRATIONS)")
	flags.String("dialect", "", "SQL dialect: postgres or sqlite (default from the database URL)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error ($RELATIONAL_LOG_LEVEL)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(docsCmd)
}

// loadDesired reads the desired model from the models directory when one is given,
// else from the schema file.
func loadDesired(modelsDir string) (*schema.Model, error) {
	if modelsDir != "" {
		m, err := loader.LoadModelFromTags(modelsDir)
		if err != nil {
			return nil, fmt.Errorf("loading models from structs: %w", err)
		}
		return m, nil
	}
	m, err := loader.LoadModelFromYAML(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Schema, err)
	}
	return m, nil
}

func openStore() (*snapshot.Store, error) {
	d, err := generator.DialectFor(cfg.DialectName())
	if err != nil {
		return nil, err
	}
	return snapshot.New(cfg.Migrations, d, logger), nil
}

func openDB(ctx context.Context) (database.DB, error) {
	if err := cfg.RequireDatabaseURL(); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// withRunner opens the database and hands a runner over the migrations directory to fn.
func withRunner(ctx context.Context, fn func(r *runner.Runner) error) error {
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(runner.New(db, cfg.Migrations, logger))
}
