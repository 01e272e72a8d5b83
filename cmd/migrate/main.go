package main

import (
	"errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	databaseURL string
	source      string
)

func newMigrator() (*migrate.Migrate, func(), error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db := stdlib.OpenDB(*config)

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, func() { m.Close() }, nil
}

func run(action func(m *migrate.Migrate) error) error {
	m, closeFn, err := newMigrator()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := action(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the lease management database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	root.PersistentFlags().StringVar(&source, "source", "file://scripts/migrations", "Migration source")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Msg("Applying migrations...")
			if err := run(func(m *migrate.Migrate) error { return m.Up() }); err != nil {
				return err
			}
			log.Info().Msg("Migrations applied successfully")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Msg("Reverting migrations...")
			if err := run(func(m *migrate.Migrate) error { return m.Down() }); err != nil {
				return err
			}
			log.Info().Msg("Migrations reverted successfully")
			return nil
		},
	})

	var version int
	force := &cobra.Command{
		Use:   "force",
		Short: "Set the migration version without running migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Int("version", version).Msg("Forcing migration version...")
			if err := run(func(m *migrate.Migrate) error { return m.Force(version) }); err != nil {
				return err
			}
			log.Info().Msg("Migration version forced successfully")
			return nil
		},
	}
	force.Flags().IntVar(&version, "version", 1, "Version to force")
	root.AddCommand(force)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
