package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/sportsync/internal/config"
)

const (
	dbMaxOpenConns    = 16
	dbMaxIdleConns    = 8
	dbConnMaxLifetime = 30 * time.Minute
)

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.ConnectContext(ctx, "postgres", cfg.DBURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)
	return db, nil
}
