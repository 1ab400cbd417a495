package migrations

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/template"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed template.txt
var migrationTemplate string

// migration ..
type migration struct {
	version string
	done    bool
	up      func(*sqlx.Tx) error
	down    func(*sqlx.Tx) error
}

// Migrator ..
type Migrator struct {
	db         *sqlx.DB
	versions   []string
	migrations map[string]*migration
}

var m = &Migrator{
	versions:   []string{},
	migrations: map[string]*migration{},
}

// NewMigrator binds the registered migrations to conn and marks the ones already applied.
func NewMigrator(conn *sqlx.DB) (*Migrator, error) {
	m.db = conn

	_, err := m.db.Exec(`CREATE SCHEMA IF NOT EXISTS metadata`)
	if err != nil {
		slog.Error("Unable to create metadata schema", slog.Any("error", err))
		return nil, err
	}

	_, err = m.db.Exec(`CREATE TABLE IF NOT EXISTS metadata.schema_migrations (
		version varchar(255)
	);`)
	if err != nil {
		slog.Error("Unable to create `schema_migrations` table", slog.Any("error", err))
		return nil, err
	}

	var done []string
	if err := m.db.Select(&done, "SELECT version FROM metadata.schema_migrations;"); err != nil {
		slog.Error("Unable to fetch completed migrations", slog.Any("error", err))
		return nil, err
	}

	for _, version := range done {
		if m.migrations[version] != nil {
			m.migrations[version].done = true
		}
	}

	return m, nil
}

// addMigration keeps versions sorted
func (m *Migrator) addMigration(mg *migration) {
	m.migrations[mg.version] = mg

	index, _ := slices.BinarySearch(m.versions, mg.version)
	m.versions = slices.Insert(m.versions, index, mg.version)
}

// Pending lists the versions not applied yet, oldest first
func (m *Migrator) Pending() []string {
	var pending []string
	for _, v := range m.versions {
		if !m.migrations[v].done {
			pending = append(pending, v)
		}
	}
	return pending
}

// MigrationStatus ..
func (m *Migrator) MigrationStatus() error {
	for _, v := range m.versions {
		mg := m.migrations[v]

		if mg.done {
			slog.Info(fmt.Sprintf("Migration %s... completed", v))
		} else {
			slog.Info(fmt.Sprintf("Migration %s... pending", v))
		}
	}

	return nil
}

// CreateMigration writes a new empty migration named title into dir
func (m *Migrator) CreateMigration(dir, title string) error {
	var out bytes.Buffer

	version := time.Now().Format("20060102150405")

	in := struct {
		Version string
		Title   string
	}{
		Version: version,
		Title:   title,
	}

	t := template.Must(template.New("migration").Parse(migrationTemplate))
	if err := t.Execute(&out, in); err != nil {
		slog.Error("Unable to execute migration template", slog.Any("error", err))
		return err
	}

	name := filepath.Join(dir, fmt.Sprintf("%s_%s.go", version, title))
	if err := os.WriteFile(name, out.Bytes(), 0o644); err != nil {
		slog.Error("Unable to create the migration file", slog.Any("error", err))
		return err
	}

	slog.Info("Generated new migration file...", slog.String("filename", name))
	return nil
}

// Up applies up to step pending migrations, all of them when step is 0
func (m *Migrator) Up(ctx context.Context, step int) error {
	return m.run(ctx, m.versions, step, false)
}

// Down reverts up to step applied migrations, newest first, all of them when step is 0
func (m *Migrator) Down(ctx context.Context, step int) error {
	versions := slices.Clone(m.versions)
	slices.Reverse(versions)
	return m.run(ctx, versions, step, true)
}

func (m *Migrator) run(ctx context.Context, versions []string, step int, down bool) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info("Unable to start transaction to run migrations", slog.Any("error", err))
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Info("panic", slog.Any("details", p))
			_ = tx.Rollback()
			err = fmt.Errorf("migration panicked: %v", p)
		}
	}()

	direction := "up"
	if down {
		direction = "down"
	}

	var applied []*migration
	count := 0
	for _, v := range versions {
		if step > 0 && count == step {
			break
		}

		mg := m.migrations[v]
		l := slog.With(slog.String("version", mg.version), slog.String("direction", direction))

		// up skips applied migrations, down skips pending ones
		if mg.done != down {
			continue
		}

		l.Info("Running migration...")
		fn, record := mg.up, "INSERT INTO metadata.schema_migrations VALUES($1);"
		if down {
			fn, record = mg.down, "DELETE FROM metadata.schema_migrations WHERE version = $1;"
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			l.Error("Error occured while running migration", slog.Any("error", err))
			return err
		}

		if _, err := tx.Exec(record, mg.version); err != nil {
			_ = tx.Rollback()
			l.Error("Failed to record migration in `metadata.schema_migrations`", slog.Any("error", err))
			return err
		}

		applied = append(applied, mg)
		count++
		l.Info("Finished migration...")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	for _, mg := range applied {
		mg.done = !down
	}
	return nil
}
