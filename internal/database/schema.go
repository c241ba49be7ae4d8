package database

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// ErrSchemaSync marks a failed schema synchronization.
var ErrSchemaSync = errors.New("schema sync failed")

// Syncer brings the database schema in line with the product model.
type Syncer interface {
	Sync(ctx context.Context) error
}

// EmbeddedSchema applies the DDL compiled into the binary.  Every statement
// is idempotent, so running it against an up-to-date database is a no-op.
type EmbeddedSchema struct {
	DB *sql.DB
}

func (s EmbeddedSchema) Sync(ctx context.Context) error {
	for _, stmt := range schemaStatements(schemaSQL) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: apply schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// CommandSyncer runs an external schema tool through the shell with
// DATABASE_URL exported, e.g. a migration CLI.  Combined output is included
// in the error when the command fails.
type CommandSyncer struct {
	Command     string
	DatabaseURL string
}

func (s CommandSyncer) Sync(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", s.Command)
	cmd.Env = append(os.Environ(), "DATABASE_URL="+s.DatabaseURL)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("database: schema command %q: %w: %s", s.Command, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// Bootstrapper runs a Syncer once at startup and applies the failure policy.
// With AbortOnFailure unset, a failed sync is logged and swallowed: the
// service then starts against whatever schema the database already has.
type Bootstrapper struct {
	Syncer         Syncer
	AbortOnFailure bool
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Run blocks until the sync finishes.  It returns an error wrapping
// ErrSchemaSync only when the sync failed and AbortOnFailure is set.
func (b Bootstrapper) Run(ctx context.Context) error {
	log := b.Logger
	if log == nil {
		log = slog.Default()
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := b.Syncer.Sync(ctx)
	if err == nil {
		log.Info("schema sync complete", slog.Duration("took", time.Since(start)))
		return nil
	}
	if b.AbortOnFailure {
		log.Error("schema sync failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrSchemaSync, err)
	}
	log.Warn("schema sync failed; continuing with existing schema", slog.Any("error", err))
	return nil
}
