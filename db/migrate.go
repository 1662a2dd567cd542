package db

import (
	"database/sql"
	"embed"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/navigatorbuilds/elara-core/errors"
)

//go:embed sqlite/migrations/*/*.sql
var migrations embed.FS

// Schema names select which migration set Migrate applies. Each of the
// three on-disk databases named in spec.md §6 (dag.sqlite,
// attestations.sqlite, udr.sqlite) gets its own schema directory so that
// opening one database never creates the others' tables.
const (
	SchemaDAG          = "dag"
	SchemaAttestations = "attestations"
	SchemaDecisions    = "decisions"
)

// Migrate runs all pending migrations for the given schema against db.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, schema string, logger *zap.SugaredLogger) error {
	dir := filepath.Join("sqlite/migrations", schema)

	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read migrations for schema %s", schema)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		version := strings.Split(filename, "_")[0]

		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename,
					"version", version,
				)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration",
				"migration", filename,
				"version", version,
				"schema", schema,
			)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}

		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", "⊔",
			"schema", schema,
			"total_migrations", len(migrationFiles),
		)
	}

	return nil
}
