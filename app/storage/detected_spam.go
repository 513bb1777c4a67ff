package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/umputun/antispam/app/storage/engine"
)

// DetectedSpam is a storage for messages detected as spam
type DetectedSpam struct {
	*engine.SQL
	engine.RWLocker
}

// DetectedSpamInfo represents information about a detected spam entry.
type DetectedSpamInfo struct {
	ID        int64     `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	Score     float64   `db:"score" json:"score"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// detected spam command constants
const (
	CmdCreateDetectedSpamTable engine.DBCmd = iota + 300
	CmdCreateDetectedSpamIndexes
)

var detectedSpamQueries = engine.NewQueryMap().
	Add(CmdCreateDetectedSpamTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS detected_spam (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gid TEXT NOT NULL DEFAULT '',
			text TEXT,
			score REAL NOT NULL DEFAULT 0,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		Postgres: `CREATE TABLE IF NOT EXISTS detected_spam (
			id SERIAL PRIMARY KEY,
			gid TEXT NOT NULL DEFAULT '',
			text TEXT,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}).
	AddSame(CmdCreateDetectedSpamIndexes, `CREATE INDEX IF NOT EXISTS idx_detected_spam_gid_ts ON detected_spam(gid, timestamp)`)

// NewDetectedSpam creates a new DetectedSpam storage
func NewDetectedSpam(ctx context.Context, db *engine.SQL) (*DetectedSpam, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}
	res := &DetectedSpam{SQL: db, RWLocker: db.MakeLock()}
	cfg := engine.TableConfig{
		Name:          "detected_spam",
		CreateTable:   CmdCreateDetectedSpamTable,
		CreateIndexes: CmdCreateDetectedSpamIndexes,
		MigrateFunc:   noopMigrate,
		QueriesMap:    detectedSpamQueries,
	}
	if err := engine.InitTable(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init detected spam storage: %w", err)
	}
	return res, nil
}

// Write adds a new detected spam entry, zero timestamp set to now
func (ds *DetectedSpam) Write(ctx context.Context, entry DetectedSpamInfo) error {
	ds.Lock()
	defer ds.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	query := ds.Adopt(`INSERT INTO detected_spam (gid, text, score, timestamp) VALUES (?, ?, ?, ?)`)
	if _, err := ds.ExecContext(ctx, query, ds.GID(), entry.Text, entry.Score, entry.Timestamp.UTC()); err != nil {
		return fmt.Errorf("failed to insert detected spam entry: %w", err)
	}
	log.Printf("[DEBUG] detected spam entry added, score %.4f", entry.Score)
	return nil
}

// Read returns up to limit most recent detected spam entries, all entries if limit is not positive
func (ds *DetectedSpam) Read(ctx context.Context, limit int) ([]DetectedSpamInfo, error) {
	ds.RLock()
	defer ds.RUnlock()

	query := `SELECT id, text, score, timestamp FROM detected_spam WHERE gid = ? ORDER BY timestamp DESC, id DESC`
	args := []any{ds.GID()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	entries := []DetectedSpamInfo{}
	if err := ds.SelectContext(ctx, &entries, ds.Adopt(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get detected spam entries: %w", err)
	}
	for i := range entries {
		entries[i].Timestamp = entries[i].Timestamp.Local()
	}
	return entries, nil
}

// String returns store description for logging
func (ds *DetectedSpam) String() string {
	return fmt.Sprintf("detected spam %s/%s", ds.Type(), ds.GID())
}
