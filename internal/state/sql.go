package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var schema = map[string]string{
	DriverMySQL: `CREATE TABLE IF NOT EXISTS frc2g_fingerprint (
		scope VARCHAR(255) NOT NULL PRIMARY KEY,
		fingerprint VARCHAR(128) NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS frc2g_fingerprint (
		scope TEXT NOT NULL PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

var upsert = map[string]string{
	DriverMySQL: `INSERT INTO frc2g_fingerprint (scope, fingerprint, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE fingerprint = VALUES(fingerprint), updated_at = VALUES(updated_at)`,
	DriverSQLite: `INSERT INTO frc2g_fingerprint (scope, fingerprint, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET fingerprint = excluded.fingerprint, updated_at = excluded.updated_at`,
}

// SQLStore keeps one fingerprint per scope (the firewall host) in a shared table.
type SQLStore struct {
	db     *sql.DB
	driver string
	scope  string
	now    func() time.Time
}

// OpenSQLStore connects to a MariaDB/MySQL or SQLite database and creates the
// fingerprint table if needed.
func OpenSQLStore(driver, dsn, scope string) (*SQLStore, error) {
	if _, ok := schema[driver]; !ok {
		return nil, fmt.Errorf("unsupported state driver: %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if driver == DriverSQLite {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state db: %w", err)
	}
	if _, err := db.Exec(schema[driver]); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fingerprint table: %w", err)
	}
	return &SQLStore{db: db, driver: driver, scope: scope, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context) (string, bool, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx, "SELECT fingerprint FROM frc2g_fingerprint WHERE scope = ?", s.scope).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load fingerprint: %w", err)
	}
	return fingerprint, true, nil
}

func (s *SQLStore) Save(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, upsert[s.driver], s.scope, fingerprint, s.now().Unix()); err != nil {
		return fmt.Errorf("save fingerprint: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
