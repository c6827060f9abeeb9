package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"solana-tx-resolver/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger zerolog.Logger) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		logger.Debug().Str("database", "postgres").Str("file", m.name).Msg("migration applied")
	}

	logger.Info().Str("database", "postgres").Int("files", len(files)).Msg("migrations complete")
	return nil
}
