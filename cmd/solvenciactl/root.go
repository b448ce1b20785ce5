package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"solvencia-backend/internal/config"
	"solvencia-backend/internal/database"
	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/repository"
	"solvencia-backend/internal/services"
	"solvencia-backend/migrations"
)

type commandContext struct {
	databaseURL *string
}

// store bundles what corpus commands need from the database.
type store struct {
	pool      *pgxpool.Pool
	docs      *repository.DocumentRepo
	knowledge *services.KnowledgeService
}

func newRootCommand() *cobra.Command {
	var databaseURL string
	ctx := &commandContext{databaseURL: &databaseURL}

	rootCmd := &cobra.Command{
		Use:           "solvenciactl",
		Short:         "Manage the SolvencIA knowledge corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())

	return rootCmd
}

func (c *commandContext) url() string {
	if c.databaseURL != nil {
		if u := strings.TrimSpace(*c.databaseURL); u != "" {
			return u
		}
	}
	return config.LoadDatabaseURL()
}

// withStore opens the database, applies pending migrations and runs fn.
func (c *commandContext) withStore(fn func(s *store) error) error {
	pool, err := database.NewPostgresPool(c.url())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(pool, migrations.FS); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	seed, err := knowledge.LoadSeed()
	if err != nil {
		return err
	}

	docs := repository.NewDocumentRepo(pool)
	corpus := knowledge.NewCorpus(docs, seed, time.Second)
	km := services.NewKnowledgeService(docs, repository.NewBrandingRepo(pool), corpus, knowledge.NewSelector(0))

	return fn(&store{pool: pool, docs: docs, knowledge: km})
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
				return nil
			})
		},
	}
}

func commandTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
