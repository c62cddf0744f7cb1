// Package database archives written measurement results in Postgres
// when the optional archive is enabled. Archive failures are logged,
// never task failures.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"netrics/pkg/conf"
	"netrics/pkg/models"
)

type DB struct {
	*bun.DB
}

func NewDB(cfg conf.Database) (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	return &DB{db}, nil
}

// InitSchema creates the archive table if it doesn't exist.
func (db *DB) InitSchema(ctx context.Context) error {
	_, err := db.NewCreateTable().
		Model((*models.TaskRecord)(nil)).
		IfNotExists().
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (db *DB) InsertRecord(ctx context.Context, record *models.TaskRecord) error {
	_, err := db.NewInsert().
		Model(record).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("error inserting task record: %v", err)
	}

	return nil
}
