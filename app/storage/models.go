package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/umputun/antispam/app/storage/engine"
	"github.com/umputun/antispam/lib/antispam"
)

// Models is a sql storage for the spam model. Totals and token counts are kept in two tables, per gid.
type Models struct {
	*engine.SQL
	engine.RWLocker
}

// models-related command constants
const (
	CmdCreateModelTotalsTable engine.DBCmd = iota + 100
	CmdCreateModelTotalsIndexes
	CmdCreateModelTokensTable
	CmdCreateModelTokensIndexes
	CmdUpsertModelTotals
)

var modelsQueries = engine.NewQueryMap().
	Add(CmdCreateModelTotalsTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS model_totals (
			gid TEXT NOT NULL PRIMARY KEY,
			spam_total INTEGER NOT NULL DEFAULT 0,
			ham_total INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		Postgres: `CREATE TABLE IF NOT EXISTS model_totals (
			gid TEXT NOT NULL PRIMARY KEY,
			spam_total BIGINT NOT NULL DEFAULT 0,
			ham_total BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}).
	AddSame(CmdCreateModelTotalsIndexes, `CREATE INDEX IF NOT EXISTS idx_model_totals_updated ON model_totals(updated_at)`).
	Add(CmdCreateModelTokensTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS model_tokens (
			gid TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL,
			ham INTEGER NOT NULL DEFAULT 0,
			spam INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (gid, token)
		)`,
		Postgres: `CREATE TABLE IF NOT EXISTS model_tokens (
			gid TEXT NOT NULL DEFAULT '',
			token TEXT NOT NULL,
			ham BIGINT NOT NULL DEFAULT 0,
			spam BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (gid, token)
		)`,
	}).
	AddSame(CmdCreateModelTokensIndexes, `CREATE INDEX IF NOT EXISTS idx_model_tokens_gid ON model_tokens(gid)`).
	Add(CmdUpsertModelTotals, engine.Query{
		Sqlite: `INSERT OR REPLACE INTO model_totals (gid, spam_total, ham_total, updated_at) VALUES (?, ?, ?, ?)`,
		Postgres: `INSERT INTO model_totals (gid, spam_total, ham_total, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (gid) DO UPDATE
			SET spam_total = EXCLUDED.spam_total, ham_total = EXCLUDED.ham_total, updated_at = EXCLUDED.updated_at`,
	})

// NewModels creates a new Models storage and makes both tables
func NewModels(ctx context.Context, db *engine.SQL) (*Models, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is nil")
	}
	res := &Models{SQL: db, RWLocker: db.MakeLock()}

	tables := []engine.TableConfig{
		{Name: "model_totals", CreateTable: CmdCreateModelTotalsTable, CreateIndexes: CmdCreateModelTotalsIndexes,
			MigrateFunc: noopMigrate, QueriesMap: modelsQueries},
		{Name: "model_tokens", CreateTable: CmdCreateModelTokensTable, CreateIndexes: CmdCreateModelTokensIndexes,
			MigrateFunc: noopMigrate, QueriesMap: modelsQueries},
	}
	for _, cfg := range tables {
		if err := engine.InitTable(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("failed to init %s table: %w", cfg.Name, err)
		}
	}
	return res, nil
}

// Save replaces the stored model for the gid with the given one, all in a single transaction
func (m *Models) Save(ctx context.Context, model *antispam.Model) error {
	if model == nil {
		return fmt.Errorf("model can't be nil")
	}

	m.Lock()
	defer m.Unlock()

	upsert, err := modelsQueries.Pick(m.Type(), CmdUpsertModelTotals)
	if err != nil {
		return fmt.Errorf("failed to get upsert query: %w", err)
	}

	tx, err := m.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	gid := m.GID()
	if _, err = tx.ExecContext(ctx, m.Adopt(upsert), gid, model.SpamTotal, model.HamTotal, time.Now()); err != nil {
		return fmt.Errorf("failed to save model totals: %w", err)
	}
	if _, err = tx.ExecContext(ctx, m.Adopt(`DELETE FROM model_tokens WHERE gid = ?`), gid); err != nil {
		return fmt.Errorf("failed to remove old tokens: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, m.Adopt(`INSERT INTO model_tokens (gid, token, ham, spam) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare token insert: %w", err)
	}
	defer stmt.Close()

	for token, c := range model.Tokens {
		if _, err = stmt.ExecContext(ctx, gid, token, c.Ham, c.Spam); err != nil {
			return fmt.Errorf("failed to save token %q: %w", token, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Printf("[DEBUG] saved model: gid=%s, spam=%d, ham=%d, tokens=%d", gid, model.SpamTotal, model.HamTotal, len(model.Tokens))
	return nil
}

// Load returns the stored model for the gid. Empty model returned if nothing stored yet.
func (m *Models) Load(ctx context.Context) (*antispam.Model, error) {
	m.RLock()
	defer m.RUnlock()

	gid := m.GID()
	res := antispam.NewModel()

	var totals struct {
		Spam int64 `db:"spam_total"`
		Ham  int64 `db:"ham_total"`
	}
	err := m.GetContext(ctx, &totals, m.Adopt(`SELECT spam_total, ham_total FROM model_totals WHERE gid = ?`), gid)
	if errors.Is(err, sql.ErrNoRows) {
		log.Printf("[DEBUG] no model stored for gid=%s", gid)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model totals: %w", err)
	}
	res.SpamTotal, res.HamTotal = totals.Spam, totals.Ham

	rows, err := m.QueryxContext(ctx, m.Adopt(`SELECT token, ham, spam FROM model_tokens WHERE gid = ?`), gid)
	if err != nil {
		return nil, fmt.Errorf("failed to get model tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec struct {
			Token string `db:"token"`
			Ham   int64  `db:"ham"`
			Spam  int64  `db:"spam"`
		}
		if err = rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		res.Tokens[rec.Token] = antispam.Counts{Ham: rec.Ham, Spam: rec.Spam}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	log.Printf("[DEBUG] loaded model: gid=%s, spam=%d, ham=%d, tokens=%d", gid, res.SpamTotal, res.HamTotal, len(res.Tokens))
	return res, nil
}

// UpdatedAt returns the time of the last save, zero time if the model was never saved
func (m *Models) UpdatedAt(ctx context.Context) (time.Time, error) {
	m.RLock()
	defer m.RUnlock()

	var ts time.Time
	err := m.GetContext(ctx, &ts, m.Adopt(`SELECT updated_at FROM model_totals WHERE gid = ?`), m.GID())
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get model update time: %w", err)
	}
	return ts, nil
}

// String implements fmt.Stringer
func (m *Models) String() string {
	return fmt.Sprintf("%s models, gid=%s", m.Type(), m.GID())
}
