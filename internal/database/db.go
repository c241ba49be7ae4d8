package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// New prepares a MySQL pool for dsn without connecting.  Connections are
// made on first use, so the pool survives a database that is still starting.
// The caller owns the pool and must Close it on shutdown.
func New(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ping verifies connectivity with a 5 second timeout.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: ping: %w", err)
	}
	return nil
}

// Open is New followed by Ping; the pool is closed again if the ping fails.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := New(dsn)
	if err != nil {
		return nil, err
	}
	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
