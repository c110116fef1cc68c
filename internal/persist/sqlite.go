package persist

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ruiztomas88/fuel-copilot-staging-backend-sub006/internal/history"
)

// SQLiteBackend stores one row per (truck, metric, timestamp, value) plus a
// daily-average materialization refreshed on save for fast trend reload.
type SQLiteBackend struct {
	db        *sql.DB
	batchSize int
	retention time.Duration
	schema    bool
}

const DefaultBatchSize = 200

// NewSQLiteBackend opens the database at dbPath. The schema is created
// lazily on the first save so that a fresh database is distinguishable from
// a populated one at load time. retention <= 0 disables row pruning on save.
func NewSQLiteBackend(dbPath string, batchSize int, retention time.Duration) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SQLiteBackend{db: db, batchSize: batchSize, retention: retention}, nil
}

func (s *SQLiteBackend) ensureSchema() error {
	if s.schema {
		return nil
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sensor_readings (
			truck_id TEXT NOT NULL,
			metric TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (truck_id, metric, timestamp)
		);
		CREATE INDEX IF NOT EXISTS idx_readings_lookup
			ON sensor_readings(truck_id, metric, timestamp);
		CREATE TABLE IF NOT EXISTS daily_averages (
			truck_id TEXT NOT NULL,
			metric TEXT NOT NULL,
			day TEXT NOT NULL,
			mean_value REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			PRIMARY KEY (truck_id, metric, day)
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	s.schema = true
	return nil
}

// Save mirrors the snapshot into the store: series absent from the snapshot
// are deleted, readings are upserted in transactions of batchSize, rows
// outside the retention window are pruned and the daily-average
// materialization is rebuilt. The snapshot is the full in-memory state, so
// after Save the store reflects it exactly; state evicted by cleanup must
// not survive here and resurrect on the next load.
func (s *SQLiteBackend) Save(snap *Snapshot) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}

	if err := s.deleteAbsentSeries(snap); err != nil {
		return err
	}

	var rows []readingRow
	for truck, metrics := range snap.Trucks {
		for metric, series := range metrics {
			for _, r := range series.Readings {
				rows = append(rows, readingRow{truck, metric, r})
			}
		}
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.saveBatch(rows[start:end]); err != nil {
			return err
		}
	}

	if s.retention > 0 {
		cutoff := time.Now().UTC().Add(-s.retention)
		if _, err := s.db.Exec(`DELETE FROM sensor_readings WHERE timestamp < ?`, cutoff); err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}

	return s.refreshDailyAverages()
}

type readingRow struct {
	truck   string
	metric  string
	reading history.Reading
}

// deleteAbsentSeries drops stored series whose (truck, metric) no longer
// exists in the snapshot
func (s *SQLiteBackend) deleteAbsentSeries(snap *Snapshot) error {
	rows, err := s.db.Query(`SELECT DISTINCT truck_id, metric FROM sensor_readings`)
	if err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	type seriesKey struct {
		truck  string
		metric string
	}
	var stale []seriesKey
	for rows.Next() {
		var key seriesKey
		if err := rows.Scan(&key.truck, &key.metric); err != nil {
			return fmt.Errorf("scan series: %w", err)
		}
		if _, ok := snap.Trucks[key.truck][key.metric]; !ok {
			stale = append(stale, key)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate series: %w", err)
	}

	for _, key := range stale {
		if _, err := s.db.Exec(
			`DELETE FROM sensor_readings WHERE truck_id = ? AND metric = ?`,
			key.truck, key.metric,
		); err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
	}

	return nil
}

func (s *SQLiteBackend) saveBatch(rows []readingRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO sensor_readings (truck_id, metric, timestamp, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.truck, row.metric, row.reading.Timestamp, row.reading.Value); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) refreshDailyAverages() error {
	_, err := s.db.Exec(`
		DELETE FROM daily_averages;
		INSERT INTO daily_averages (truck_id, metric, day, mean_value, sample_count)
			SELECT truck_id, metric, date(timestamp), AVG(value), COUNT(*)
			FROM sensor_readings
			GROUP BY truck_id, metric, date(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("refresh daily averages: %w", err)
	}
	return nil
}

// Load restores all stored readings. A database without the schema returns
// ErrNoSchema, an empty table returns ErrNoRows.
func (s *SQLiteBackend) Load() (*Snapshot, error) {
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'sensor_readings'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, ErrNoSchema
	}
	if err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	s.schema = true

	rows, err := s.db.Query(
		`SELECT truck_id, metric, timestamp, value FROM sensor_readings
		 ORDER BY truck_id, metric, timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	snap := NewSnapshot()
	for rows.Next() {
		var truck, metric string
		var ts time.Time
		var value float64
		if err := rows.Scan(&truck, &metric, &ts, &value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		metrics := snap.Trucks[truck]
		if metrics == nil {
			metrics = make(map[string]Series)
			snap.Trucks[truck] = metrics
		}
		series := metrics[metric]
		series.Readings = append(series.Readings, history.Reading{Timestamp: ts.UTC(), Value: value})
		metrics[metric] = series
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	if snap.ReadingCount() == 0 {
		return nil, ErrNoRows
	}
	return snap, nil
}

// Flush is a no-op: writes are committed per batch
func (s *SQLiteBackend) Flush() error {
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
