// Package migrations exposes the case ledger schema as dialect-keyed
// filesystems and registers them against a persistence layer.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	accountsupport "github.com/goliatone/go-account-support"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Set is one dialect's migration filesystem, rooted at the directory that
// holds its *.up.sql files.
type Set struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc binds one migration set to a persistence client, typically by
// calling its RegisterSQLMigrations method with set.FS.
type RegisterFunc func(ctx context.Context, set Set) error

// FS resolves the embedded migration filesystem for a single dialect.
func FS(dialect string) (Set, error) {
	normalized := strings.TrimSpace(strings.ToLower(dialect))
	switch normalized {
	case DialectPostgres:
		return resolveSet(normalized, "data/sql/migrations")
	case DialectSQLite:
		return resolveSet(normalized, "data/sql/migrations/sqlite")
	default:
		return Set{}, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
}

// Sets resolves the requested dialects, defaulting to every dialect the
// module ships schema for.
func Sets(dialects ...string) ([]Set, error) {
	if len(dialects) == 0 {
		dialects = []string{DialectPostgres, DialectSQLite}
	}

	seen := make(map[string]struct{}, len(dialects))
	sets := make([]Set, 0, len(dialects))
	for _, dialect := range dialects {
		normalized := strings.TrimSpace(strings.ToLower(dialect))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		set, err := FS(normalized)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("migrations: no dialects requested")
	}
	return sets, nil
}

// Register resolves the requested dialect sets and hands each one to
// registerFn. Registration stops at the first failure.
func Register(ctx context.Context, registerFn RegisterFunc, dialects ...string) error {
	if registerFn == nil {
		return fmt.Errorf("migrations: register function is required")
	}

	sets, err := Sets(dialects...)
	if err != nil {
		return err
	}

	for _, set := range sets {
		if err := registerFn(ctx, set); err != nil {
			return fmt.Errorf("migrations: register %s (%s): %w", set.Dialect, set.Path, err)
		}
	}
	return nil
}

func resolveSet(dialect string, path string) (Set, error) {
	sub, err := fs.Sub(accountsupport.GetMigrationsFS(), path)
	if err != nil {
		return Set{}, fmt.Errorf("migrations: resolve %s filesystem: %w", dialect, err)
	}

	matches, err := fs.Glob(sub, "*.up.sql")
	if err != nil {
		return Set{}, fmt.Errorf("migrations: glob %s %s: %w", dialect, path, err)
	}
	if len(matches) == 0 {
		return Set{}, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", dialect, path)
	}

	return Set{Dialect: dialect, Path: path, FS: sub}, nil
}
