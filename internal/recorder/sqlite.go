package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"YieldStream/internal/model"
)

// SQLiteRecorder persists stream history to a SQLite database.
// Amounts are stored as decimal strings so no precision is lost.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stream_samples (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			stream_id         INTEGER NOT NULL,
			status            TEXT,
			total_vested      TEXT,
			claimable         TEXT,
			withdrawn         TEXT,
			remaining_to_vest TEXT,
			progress_percent  REAL,
			is_active         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_stream_ts ON stream_samples(stream_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS claim_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			stream_id INTEGER NOT NULL,
			action    TEXT,
			amount    TEXT,
			tx_hash   TEXT,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_stream ON claim_events(stream_id)`,

		`CREATE TABLE IF NOT EXISTS alert_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			stream_id  INTEGER NOT NULL,
			alert_type TEXT,
			status     TEXT,
			claimable  TEXT,
			tier       TEXT,
			message    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alert_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSample(s *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := s.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO stream_samples
		(timestamp, stream_id, status, total_vested, claimable, withdrawn,
		 remaining_to_vest, progress_percent, is_active)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		at.Unix(), int64(s.StreamID), string(s.Status),
		s.TotalVested.String(), s.Claimable.String(), s.Withdrawn.String(),
		s.RemainingToVest.String(), s.ProgressPercent, s.IsActive,
	)
	return err
}

func (r *SQLiteRecorder) RecordClaim(evt *ClaimEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO claim_events
		(timestamp, stream_id, action, amount, tx_hash, error)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), int64(evt.StreamID), evt.Action,
		evt.Amount.String(), evt.TxHash, evt.Err,
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(a *model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alert_events
		(timestamp, stream_id, alert_type, status, claimable, tier, message)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), int64(a.StreamID), string(a.Type), string(a.Status),
		a.Claimable.String(), a.Tier, a.Message,
	)
	return err
}

func (r *SQLiteRecorder) History(streamID uint64, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, status, total_vested, claimable, withdrawn,
		remaining_to_vest, progress_percent, is_active
		FROM stream_samples WHERE stream_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`, int64(streamID), limit)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			ts                                      int64
			status                                  string
			vested, claimable, withdrawn, remaining string
			progress                                float64
			active                                  bool
		)
		if err := rows.Scan(&ts, &status, &vested, &claimable, &withdrawn, &remaining, &progress, &active); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s := Sample{
			StreamID:        streamID,
			At:              time.Unix(ts, 0),
			Status:          model.StreamStatus(status),
			ProgressPercent: progress,
			IsActive:        active,
		}
		if s.TotalVested, err = decimal.NewFromString(vested); err != nil {
			return nil, fmt.Errorf("parse total_vested: %w", err)
		}
		if s.Claimable, err = decimal.NewFromString(claimable); err != nil {
			return nil, fmt.Errorf("parse claimable: %w", err)
		}
		if s.Withdrawn, err = decimal.NewFromString(withdrawn); err != nil {
			return nil, fmt.Errorf("parse withdrawn: %w", err)
		}
		if s.RemainingToVest, err = decimal.NewFromString(remaining); err != nil {
			return nil, fmt.Errorf("parse remaining_to_vest: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
