// Package storage provides persistent stores for the spam model and its training samples.
// SQL stores (sqlite and postgres) are built on top of engine.SQL, with each group (gid) isolated in the same database.
// Redis and plain file stores keep the model only.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// noopMigrate is used by tables without migrations
func noopMigrate(context.Context, *sqlx.Tx, string) error { return nil }
