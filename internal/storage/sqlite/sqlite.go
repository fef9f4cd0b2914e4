package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"duet/internal/storage"
)

// Store реализует storage.Store поверх SQLite.
type Store struct {
	db *sql.DB
}

// Open инициализирует соединение и выполняет миграции.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			request_id TEXT,
			transport TEXT NOT NULL,
			target TEXT,
			outcome INTEGER NOT NULL,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_ts ON invocations(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_transport_ts ON invocations(transport, ts);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveInvocation сохраняет запись об обработанном запросе.
func (s *Store) SaveInvocation(ctx context.Context, inv storage.Invocation) error {
	ts := inv.TS.UTC()
	if inv.TS.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO invocations(request_id, transport, target, outcome, message, ts) VALUES(?,?,?,?,?,?)`,
		inv.RequestID, inv.Transport, inv.Target, inv.Outcome, inv.Message, ts)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// QueryInvocations возвращает историю по фильтрам, новые записи первыми.
func (s *Store) QueryInvocations(ctx context.Context, q storage.InvocationQuery) ([]storage.Invocation, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	// ts хранится строкой в UTC, границы сравниваются с ней лексически.
	from := q.From.UTC()
	if q.From.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := q.To.UTC()
	if q.To.IsZero() {
		to = time.Now().UTC()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT request_id, transport, target, outcome, message, ts
FROM invocations
WHERE ts >= ? AND ts <= ? AND (? = '' OR transport = ?)
ORDER BY ts DESC, id DESC
LIMIT ?`, from, to, q.Transport, q.Transport, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Invocation, 0, limit)
	for rows.Next() {
		var inv storage.Invocation
		var requestID, target, message sql.NullString
		var ts string
		if err := rows.Scan(&requestID, &inv.Transport, &target, &inv.Outcome, &message, &ts); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		parsedTS, err := parseSQLiteTS(ts)
		if err != nil {
			return nil, fmt.Errorf("parse invocation timestamp: %w", err)
		}
		inv.RequestID = requestID.String
		inv.Target = target.String
		inv.Message = message.String
		inv.TS = parsedTS
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return out, nil
}

func parseSQLiteTS(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported sqlite time format: %q", v)
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}
