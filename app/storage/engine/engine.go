// Package engine provides sql connection shared by model and samples stores.
// It supports sqlite and postgres, with per-group (gid) separation of records in the same database.
package engine

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite" // sqlite driver loaded here
)

// Type is a type of database engine
type Type string

// enum of supported database engines
const (
	Unknown  Type = ""
	Sqlite   Type = "sqlite"
	Postgres Type = "postgres"
)

// SQL is a wrapper for sqlx.DB with type.
// Type allows distinguishing between different database engines.
type SQL struct {
	sqlx.DB
	gid    string // group id, to allow per-group storage in the same database
	dbType Type   // type of the database engine
}

// TableConfig describes a table managed by InitTable
type TableConfig struct {
	Name          string
	CreateTable   DBCmd
	CreateIndexes DBCmd
	MigrateFunc   func(ctx context.Context, tx *sqlx.Tx, gid string) error
	QueriesMap    *QueryMap
}

// New makes sql engine for the given connection url.
// Postgres urls start with postgres:// or postgresql://, everything else with known prefix or suffix is sqlite.
func New(ctx context.Context, connURL, gid string) (*SQL, error) {
	if connURL == "" {
		return nil, fmt.Errorf("connection URL is empty")
	}

	switch {
	case strings.HasPrefix(connURL, "postgres://"), strings.HasPrefix(connURL, "postgresql://"):
		res, err := NewPostgres(ctx, connURL, gid)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return res, nil
	case connURL == ":memory:":
		return NewSqlite(connURL, gid)
	case strings.HasPrefix(connURL, "file://"):
		return NewSqlite(strings.TrimPrefix(connURL, "file://"), gid)
	case strings.HasPrefix(connURL, "sqlite://"):
		return NewSqlite(strings.TrimPrefix(connURL, "sqlite://"), gid)
	case strings.HasPrefix(connURL, "file:"):
		return NewSqlite(strings.TrimPrefix(connURL, "file:"), gid)
	case strings.HasSuffix(connURL, ".sqlite"), strings.HasSuffix(connURL, ".db"):
		return NewSqlite(connURL, gid)
	}
	return nil, fmt.Errorf("unsupported database type in connection url %q", connURL)
}

// NewSqlite creates a new sqlite database
func NewSqlite(file, gid string) (*SQL, error) {
	db, err := sqlx.Connect("sqlite", file)
	if err != nil {
		return &SQL{}, err
	}
	if err := setSqlitePragma(db); err != nil {
		return &SQL{}, err
	}
	if file == ":memory:" {
		db.SetMaxOpenConns(1) // each connection gets its own in-memory database
	}
	return &SQL{DB: *db, gid: gid, dbType: Sqlite}, nil
}

// NewPostgres creates a new postgres connection. The database is created if it doesn't exist yet.
func NewPostgres(ctx context.Context, connURL, gid string) (*SQL, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection url: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return nil, fmt.Errorf("database name not specified in %s", u.Redacted())
	}

	// connect to the maintenance database to make sure the target one exists
	adminURL := *u
	adminURL.Path = "/postgres"
	admin, err := sqlx.ConnectContext(ctx, "postgres", adminURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
	}
	defer admin.Close()

	var exists bool
	if err = admin.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName); err != nil {
		return nil, fmt.Errorf("failed to check database %s: %w", dbName, err)
	}
	if !exists {
		// identifiers can't be passed as parameters
		if _, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", dbName, err)
		}
		log.Printf("[INFO] created postgres database %s", dbName)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", dbName, err)
	}
	return &SQL{DB: *db, gid: gid, dbType: Postgres}, nil
}

// GID returns the group id
func (e *SQL) GID() string {
	return e.gid
}

// WithGID returns engine sharing the same connection pool but bound to another group
func (e *SQL) WithGID(gid string) *SQL {
	return &SQL{DB: e.DB, gid: gid, dbType: e.dbType}
}

// Type returns the database engine type
func (e *SQL) Type() Type {
	return e.dbType
}

// MakeLock creates a new lock for the database engine
func (e *SQL) MakeLock() RWLocker {
	if e.dbType == Sqlite {
		return new(sync.RWMutex) // sqlite need locking
	}
	return &NoopLocker{} // other engines don't need locking
}

// Adopt converts "?" placeholders to "$n" for postgres. Question marks inside quoted literals are left as is.
func (e *SQL) Adopt(query string) string {
	if e.dbType != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n, inQuote := 0, false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func setSqlitePragma(db *sqlx.DB) error {
	// WAL and friends would add two more db files next to the main one, keep the default journal for now
	pragmas := map[string]string{
		"busy_timeout": "5000",
	}

	for name, value := range pragmas {
		if _, err := db.Exec("PRAGMA " + name + " = " + value); err != nil {
			return err
		}
	}
	return nil
}

// InitTable creates the table and its indexes if needed and runs migration, all in a single transaction
func InitTable(ctx context.Context, db *SQL, cfg TableConfig) error {
	if db == nil {
		return fmt.Errorf("db connection is nil")
	}
	if cfg.QueriesMap == nil {
		return fmt.Errorf("no queries map for %s", cfg.Name)
	}

	createTable, err := cfg.QueriesMap.Pick(db.Type(), cfg.CreateTable)
	if err != nil {
		return fmt.Errorf("failed to get create table query: %w", err)
	}
	createIndexes, err := cfg.QueriesMap.Pick(db.Type(), cfg.CreateIndexes)
	if err != nil {
		return fmt.Errorf("failed to get create indexes query: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create %s table: %w", cfg.Name, err)
	}

	if cfg.MigrateFunc != nil {
		if err = cfg.MigrateFunc(ctx, tx, db.GID()); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", cfg.Name, err)
		}
	}

	if _, err = tx.ExecContext(ctx, createIndexes); err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", cfg.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
