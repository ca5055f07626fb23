// Package memstore keeps every repository of the engine in process memory. It backs
// `serve --in-memory` and the engine and API tests.
package memstore

import (
	"context"
	"sync"

	"investor-matching/internal/common/retry"
)

type txKey struct{}

// DB holds the tables. Transactions are serialised and roll back to a snapshot on error.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	theses       map[string]thesisRow
	matches      map[string]matchRow
	interactions []interactionRow
	startups     map[string]startupRow
}

func New() *DB {
	return &DB{
		theses:   make(map[string]thesisRow),
		matches:  make(map[string]matchRow),
		startups: make(map[string]startupRow),
	}
}

// WithinTx implements database.Transactor. Nested calls join the outer transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(retry.SingleAttempt(context.WithValue(ctx, txKey{}, true))); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write runs fn under the data lock. Outside a transaction it also waits for running
// transactions so a rollback never discards it.
func (db *DB) write(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

func (db *DB) read(fn func()) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}

type snapshot struct {
	theses       map[string]thesisRow
	matches      map[string]matchRow
	interactions []interactionRow
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s := snapshot{
		theses:       make(map[string]thesisRow, len(db.theses)),
		matches:      make(map[string]matchRow, len(db.matches)),
		interactions: append([]interactionRow(nil), db.interactions...),
	}
	for k, v := range db.theses {
		s.theses[k] = v
	}
	for k, v := range db.matches {
		s.matches[k] = v
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.theses = s.theses
	db.matches = s.matches
	db.interactions = s.interactions
}

func (db *DB) Theses() *ThesisRepository { return &ThesisRepository{db: db} }

func (db *DB) Matches() *MatchRepository { return &MatchRepository{db: db} }

func (db *DB) Interactions() *InteractionRepository { return &InteractionRepository{db: db} }

func (db *DB) Startups() *StartupRepository { return &StartupRepository{db: db} }
