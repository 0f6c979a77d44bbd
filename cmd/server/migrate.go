package main

import (
	"fmt"

	"cv-builder/internal/config"
	"cv-builder/internal/infrastructure/migration"
	infra "cv-builder/pkg/infrastructure"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Create or update the cv_documents table in the database named by DATABASE_URL or [database] url.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	pool, err := infra.NewDocumentsPool(cmd.Context(), cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return migration.RunMigrations(cmd.Context(), pool, log)
}
