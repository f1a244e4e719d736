package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the embedded schema, applied in version order.
// anonymized_trips is append-only: rows are inserted by the
// anonymization orchestrator and never updated or deleted.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_raw_trips",
		SQL: `
			CREATE TABLE IF NOT EXISTS raw_trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				origin_lat REAL NOT NULL,
				origin_lon REAL NOT NULL,
				dest_lat REAL NOT NULL,
				dest_lon REAL NOT NULL,
				start_ts INTEGER NOT NULL,
				end_ts INTEGER NOT NULL,
				duration_seconds INTEGER NOT NULL,
				distance_meters REAL NOT NULL,
				travel_mode TEXT NOT NULL DEFAULT '',
				purpose TEXT NOT NULL DEFAULT '',
				companion_count INTEGER NOT NULL DEFAULT 0,
				synced INTEGER NOT NULL DEFAULT 0,
				is_private INTEGER NOT NULL DEFAULT 0,
				anonymized_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_raw_trips_eligibility
				ON raw_trips(synced, is_private, anonymized_at);
			CREATE INDEX IF NOT EXISTS idx_raw_trips_user
				ON raw_trips(user_id);
		`,
	},
	{
		Version: 2,
		Name:    "create_anonymized_trips",
		SQL: `
			CREATE TABLE IF NOT EXISTS anonymized_trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				pseudonym_id TEXT NOT NULL,
				trip_date TEXT NOT NULL,
				origin_zone TEXT NOT NULL,
				dest_zone TEXT NOT NULL,
				start_time_bucket TEXT NOT NULL,
				end_time_bucket TEXT NOT NULL,
				duration_bucket TEXT NOT NULL,
				distance_bucket TEXT NOT NULL,
				duration_seconds INTEGER NOT NULL,
				distance_meters REAL NOT NULL,
				travel_mode TEXT NOT NULL DEFAULT '',
				purpose TEXT NOT NULL DEFAULT '',
				companion_bucket TEXT NOT NULL DEFAULT '0',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_anonymized_trips_date
				ON anonymized_trips(trip_date);
			CREATE INDEX IF NOT EXISTS idx_anonymized_trips_od
				ON anonymized_trips(origin_zone, dest_zone);
			CREATE INDEX IF NOT EXISTS idx_anonymized_trips_pseudonym
				ON anonymized_trips(pseudonym_id, trip_date, start_time_bucket);
		`,
	},
	{
		Version: 3,
		Name:    "create_anonymization_jobs",
		SQL: `
			CREATE TABLE IF NOT EXISTS anonymization_jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				reference TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL DEFAULT 'queued',
				progress_percent INTEGER NOT NULL DEFAULT 0,
				processed_count INTEGER NOT NULL DEFAULT 0,
				suppressed_user_count INTEGER NOT NULL DEFAULT 0,
				error_count INTEGER NOT NULL DEFAULT 0,
				error_message TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP,
				completed_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_anonymization_jobs_status
				ON anonymization_jobs(status);
		`,
	},
}

// Migrate applies all pending migrations to the given database
func Migrate(conn *sql.DB) error {
	if err := initMigrationsTable(conn); err != nil {
		return err
	}

	applied, err := appliedMigrations(conn)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	for _, m := range pending {
		if err := applyMigration(conn, m); err != nil {
			return err
		}
		log.Printf("[Migrations] Applied migration %d: %s", m.Version, m.Name)
	}

	return nil
}

// initMigrationsTable creates the migrations tracking table
func initMigrationsTable(conn *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// appliedMigrations returns the set of applied migration versions
func appliedMigrations(conn *sql.DB) (map[int]bool, error) {
	rows, err := conn.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// applyMigration runs a single migration inside a transaction
func applyMigration(conn *sql.DB, m Migration) error {
	return Transaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		return nil
	})
}
