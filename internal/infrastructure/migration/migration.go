package migration

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// Migration is one idempotent schema step.
type Migration struct {
	Name string
	SQL  string
}

// Migrations lists every step in the order they are applied. Each statement
// must be safe to run again on an already migrated database.
var Migrations = []Migration{
	{
		Name: "create_cv_documents",
		SQL: `CREATE TABLE IF NOT EXISTS cv_documents (
			id             UUID PRIMARY KEY,
			document       JSONB NOT NULL,
			template_type  TEXT NOT NULL,
			template_color TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		Name: "add_payment_columns_to_cv_documents",
		SQL: `ALTER TABLE cv_documents
			ADD COLUMN IF NOT EXISTS status     TEXT NOT NULL DEFAULT 'pending',
			ADD COLUMN IF NOT EXISTS payment_id TEXT,
			ADD COLUMN IF NOT EXISTS paid_at    TIMESTAMPTZ`,
	},
	{
		Name: "index_cv_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS cv_documents_status_idx ON cv_documents (status, created_at)`,
	},
}

// RunMigrations executes all migrations on startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	log.Info().Int("count", len(Migrations)).Msg("starting database migrations")

	for _, m := range Migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			log.Error().Err(err).Str("name", m.Name).Msg("migration failed")
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		log.Info().Str("name", m.Name).Msg("migration completed")
	}

	log.Info().Msg("all migrations completed")
	return nil
}
