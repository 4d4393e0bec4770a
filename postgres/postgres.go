package postgres

import (
	"context"
	"time"

	"stub-router/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// NewPool connects to the relational store that the dashboard writes link
// rows into. The edge only ever reads from it.
func NewPool(cfg config.PostgresConfig) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeout)*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure Postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}

	log.Info().Msg("Connected to Postgres successfully")
	return pool
}
