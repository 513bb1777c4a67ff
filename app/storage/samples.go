package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log"

	"github.com/umputun/antispam/app/storage/engine"
)

// Samples is a storage for raw training messages, ham and spam. Model can be rebuilt from it at any time.
type Samples struct {
	*engine.SQL
	engine.RWLocker
}

// SampleType represents the type of the sample
type SampleType string

// enum for sample types
const (
	SampleTypeHam  SampleType = "ham"
	SampleTypeSpam SampleType = "spam"
)

// SampleTypeOf returns sample type for a spam flag
func SampleTypeOf(isSpam bool) SampleType {
	if isSpam {
		return SampleTypeSpam
	}
	return SampleTypeHam
}

// Sample is a single stored training message
type Sample struct {
	ID      int64      `db:"id"`
	Type    SampleType `db:"type"`
	Message string     `db:"message"`
}

// samples-related command constants
const (
	CmdCreateSamplesTable engine.DBCmd = iota + 500
	CmdCreateSamplesIndexes
	CmdAddSample
)

var samplesQueries = engine.NewQueryMap().
	Add(CmdCreateSamplesTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gid TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			type TEXT CHECK (type IN ('ham', 'spam')),
			message TEXT NOT NULL,
			UNIQUE(gid, message)
		)`,
		Postgres: `CREATE TABLE IF NOT EXISTS samples (
			id SERIAL PRIMARY KEY,
			gid TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			type TEXT CHECK (type IN ('ham', 'spam')),
			message TEXT NOT NULL,
			message_hash TEXT GENERATED ALWAYS AS (encode(sha256(message::bytea), 'hex')) STORED,
			UNIQUE(gid, message_hash)
		)`,
	}).
	Add(CmdCreateSamplesIndexes, engine.Query{
		Sqlite: `
			CREATE INDEX IF NOT EXISTS idx_samples_gid ON samples(gid);
			CREATE INDEX IF NOT EXISTS idx_samples_lookup ON samples(gid, type, timestamp)`,
		Postgres: `
			CREATE INDEX IF NOT EXISTS idx_samples_gid ON samples(gid);
			CREATE INDEX IF NOT EXISTS idx_samples_lookup ON samples(gid, type, timestamp);
			CREATE INDEX IF NOT EXISTS idx_samples_message_hash ON samples(message_hash)`,
	}).
	Add(CmdAddSample, engine.Query{
		Sqlite: `INSERT OR REPLACE INTO samples (gid, type, message) VALUES (?, ?, ?)`,
		Postgres: `INSERT INTO samples (gid, type, message) VALUES ($1, $2, $3)
			ON CONFLICT (gid, message_hash) DO UPDATE SET type = EXCLUDED.type, timestamp = CURRENT_TIMESTAMP`,
	})

// NewSamples creates a new Samples storage
func NewSamples(ctx context.Context, db *engine.SQL) (*Samples, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}
	res := &Samples{SQL: db, RWLocker: db.MakeLock()}
	cfg := engine.TableConfig{
		Name:          "samples",
		CreateTable:   CmdCreateSamplesTable,
		CreateIndexes: CmdCreateSamplesIndexes,
		MigrateFunc:   noopMigrate,
		QueriesMap:    samplesQueries,
	}
	if err := engine.InitTable(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init samples storage: %w", err)
	}
	return res, nil
}

// Add adds a sample to the storage. The same message added again replaces the old one, with the new type.
func (s *Samples) Add(ctx context.Context, t SampleType, message string) error {
	dbgMsg := message
	if len(dbgMsg) > 1024 {
		dbgMsg = dbgMsg[:1024] + "..."
	}
	log.Printf("[DEBUG] adding sample: %s, %q", t, dbgMsg)
	if err := t.Validate(); err != nil {
		return err
	}
	if message == "" {
		return fmt.Errorf("message can't be empty")
	}

	s.Lock()
	defer s.Unlock()

	query, err := samplesQueries.Pick(s.Type(), CmdAddSample)
	if err != nil {
		return fmt.Errorf("failed to get query: %w", err)
	}
	if _, err := s.ExecContext(ctx, query, s.GID(), t, message); err != nil {
		return fmt.Errorf("failed to add sample: %w", err)
	}
	return nil
}

// Delete removes a sample from the storage by its ID
func (s *Samples) Delete(ctx context.Context, id int64) error {
	log.Printf("[DEBUG] deleting sample: %d", id)
	s.Lock()
	defer s.Unlock()

	result, err := s.ExecContext(ctx, s.Adopt(`DELETE FROM samples WHERE id = ? AND gid = ?`), id, s.GID())
	if err != nil {
		return fmt.Errorf("failed to remove sample: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sample %d not found", id)
	}
	return nil
}

// Read returns all samples of the given type, from the newest to the oldest
func (s *Samples) Read(ctx context.Context, t SampleType) ([]Sample, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.RLock()
	defer s.RUnlock()

	var res []Sample
	query := s.Adopt(`SELECT id, type, message FROM samples WHERE gid = ? AND type = ? ORDER BY timestamp DESC, id DESC`)
	if err := s.SelectContext(ctx, &res, query, s.GID(), t); err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	log.Printf("[DEBUG] read %d samples: gid=%s, type=%s", len(res), s.GID(), t)
	return res, nil
}

// Iterator returns an iterator over messages of the given type, in insertion order.
// The iterator stops on context cancellation.
func (s *Samples) Iterator(ctx context.Context, t SampleType) (iter.Seq[string], error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	query := s.Adopt(`SELECT message FROM samples WHERE gid = ? AND type = ? ORDER BY id`)
	s.RLock()
	rows, err := s.QueryxContext(ctx, query, s.GID(), t)
	s.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}

	return func(yield func(string) bool) {
		defer rows.Close()
		for rows.Next() {
			if ctx.Err() != nil {
				return
			}
			var message string
			if err := rows.Scan(&message); err != nil {
				log.Printf("[ERROR] scan failed: %v", err)
				return
			}
			if !yield(message) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			log.Printf("[ERROR] rows iteration failed: %v", err)
		}
	}, nil
}

// Import reads samples from the reader, one message per line, and adds them in a single transaction.
// Empty lines are skipped. If withCleanup is true removes all samples of the same type before import.
func (s *Samples) Import(ctx context.Context, t SampleType, r io.Reader, withCleanup bool) (*SamplesStats, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	gid := s.GID()

	s.Lock()
	defer s.Unlock()

	tx, err := s.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if withCleanup {
		result, errDel := tx.ExecContext(ctx, s.Adopt(`DELETE FROM samples WHERE gid = ? AND type = ?`), gid, t)
		if errDel != nil {
			return nil, fmt.Errorf("failed to remove old samples: %w", errDel)
		}
		if affected, errCount := result.RowsAffected(); errCount == nil {
			log.Printf("[DEBUG] removed %d old samples: gid=%s, type=%s", affected, gid, t)
		}
	}

	query, err := samplesQueries.Pick(s.Type(), CmdAddSample)
	if err != nil {
		return nil, fmt.Errorf("failed to get import query: %w", err)
	}
	scanner := bufio.NewScanner(r)
	const maxScanTokenSize = 64 * 1024 // 64KB max line length
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	added := 0
	for scanner.Scan() {
		message := scanner.Text()
		if message == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, query, gid, t, message); err != nil {
			return nil, fmt.Errorf("failed to add sample: %w", err)
		}
		added++
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Printf("[DEBUG] imported %d samples: gid=%s, type=%s", added, gid, t)
	return s.stats(ctx)
}

// String implements Stringer interface
func (t SampleType) String() string { return string(t) }

// Validate checks if the sample type is valid
func (t SampleType) Validate() error {
	switch t {
	case SampleTypeHam, SampleTypeSpam:
		return nil
	}
	return fmt.Errorf("invalid sample type: %s", t)
}

// SamplesStats returns statistics about samples
type SamplesStats struct {
	TotalSpam int `db:"spam_count" json:"spam"`
	TotalHam  int `db:"ham_count" json:"ham"`
}

// String provides a string representation of the statistics
func (st *SamplesStats) String() string {
	return fmt.Sprintf("spam: %d, ham: %d", st.TotalSpam, st.TotalHam)
}

// Stats returns statistics about samples
func (s *Samples) Stats(ctx context.Context) (*SamplesStats, error) {
	s.RLock()
	defer s.RUnlock()
	return s.stats(ctx)
}

// stats returns statistics about samples without locking
func (s *Samples) stats(ctx context.Context) (*SamplesStats, error) {
	query := s.Adopt(`
		SELECT
			COUNT(CASE WHEN type = 'spam' THEN 1 END) as spam_count,
			COUNT(CASE WHEN type = 'ham' THEN 1 END) as ham_count
		FROM samples
		WHERE gid = ?`)

	var stats SamplesStats
	if err := s.GetContext(ctx, &stats, query, s.GID()); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
