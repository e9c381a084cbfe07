// Package migrations exposes the embedded ingest_messages schema for
// persistence clients. One migration set ships in two dialects: postgres
// files at the embedded root and a sqlite variant beneath it.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	ingest "github.com/goliatone/go-ingest"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embeddedRoot = "data/sql/migrations"

// Source is one dialect's migration filesystem.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

// Registration records what Register handed to the persistence client.
// Sources holds only the dialects that were actually registered.
type Registration struct {
	SourceLabel string
	Dialects    []string
	Sources     []Source
}

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithDialects restricts registration to the named dialects. A sqlite-backed
// test client registers only the sqlite variant this way.
func WithDialects(dialects ...string) Option {
	return func(r *Registration) {
		if len(dialects) == 0 {
			return
		}
		r.Dialects = dialects
	}
}

// Sources resolves both dialect filesystems from the embedded tree and
// verifies each carries at least one up migration.
func Sources() ([]Source, error) {
	base, err := fs.Sub(ingest.GetCoreMigrationsFS(), embeddedRoot)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve embedded root: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite variant: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: embeddedRoot, FS: base},
		{Dialect: DialectSQLite, Path: embeddedRoot + "/sqlite", FS: sqliteFS},
	}
	for _, source := range sources {
		matches, globErr := fs.Glob(source.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", source.Dialect, source.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", source.Dialect, source.Path)
		}
	}
	return sources, nil
}

// Register hands each selected dialect's filesystem to registerFn, typically
// a closure over persistence.Client.RegisterSQLMigrations.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: "go-ingest",
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&reg)
	}
	if strings.TrimSpace(reg.SourceLabel) == "" {
		return reg, fmt.Errorf("migrations: source label is required")
	}

	sources, err := Sources()
	if err != nil {
		return reg, err
	}

	for _, source := range sources {
		if !reg.wantsDialect(source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, reg.SourceLabel, source.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
		reg.Sources = append(reg.Sources, source)
	}
	if len(reg.Sources) == 0 {
		return reg, fmt.Errorf("migrations: no sources matched dialects %v", reg.Dialects)
	}
	return reg, nil
}

func (r Registration) wantsDialect(dialect string) bool {
	for _, candidate := range r.Dialects {
		if strings.EqualFold(strings.TrimSpace(candidate), dialect) {
			return true
		}
	}
	return false
}
