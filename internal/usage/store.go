// Package usage persists query acceptance history and provider runtimes.
//
// The store backs ranking: every accepted result is recorded as a usage
// event, and RankBoost turns a result's acceptance history into a
// non-negative score added to its provider score. Provider latencies are
// kept as runtime samples for diagnostics. Both tables are pruned to a
// fixed retention window when the store is opened.
package usage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	beamerr "github.com/beamlauncher/beam/internal/errors"
)

// Retention windows, enforced at open time.
const (
	// UsageRetentionDays is how long accepted-result events are kept.
	UsageRetentionDays = 90
	// RuntimeRetentionDays is how long provider latency samples are kept.
	RuntimeRetentionDays = 7
)

// boostHalfDecayDays controls how fast a usage event's boost contribution
// fades: an event this many days old contributes half of a fresh one.
const boostHalfDecayDays = 30.0

const timeFormat = "2006-01-02 15:04:05"

// Store is the SQLite-backed usage store.
type Store struct {
	db    *sql.DB
	path  string
	cache *lru.Cache[string, float64]
}

// Open opens (creating if necessary) the usage store at path.
// An empty path opens an in-memory store for testing.
//
// Opening fails if the database cannot be opened or the schema cannot be
// created; there is no degraded mode without persistence. Retention
// pruning failures are logged and ignored.
func Open(path string, boostCacheSize int) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, beamerr.New(beamerr.ErrCodeStoreOpen,
				fmt.Sprintf("create store directory %s", filepath.Dir(path)), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, beamerr.New(beamerr.ErrCodeStoreOpen, "open usage database", err)
	}

	// Single connection: modernc.org/sqlite serializes writers anyway, and
	// one writer avoids lock contention on the WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, beamerr.New(beamerr.ErrCodeStoreOpen, "set pragma", err)
		}
	}

	// Ranking correctness depends on transactional writes; verify the
	// connection actually supports them before accepting it.
	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, beamerr.New(beamerr.ErrCodeStoreNoTxSupport, "transactions unavailable", err)
	}
	_ = tx.Rollback()

	if boostCacheSize <= 0 {
		boostCacheSize = 1024
	}
	cache, _ := lru.New[string, float64](boostCacheSize)

	s := &Store{db: db, path: path, cache: cache}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.Prune()

	return s, nil
}

// initSchema creates the tables if absent. Idempotent.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usages (
		input TEXT NOT NULL,
		itemId TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_usages_input_item ON usages(input, itemId);

	CREATE TABLE IF NOT EXISTS runtimes (
		extensionId TEXT NOT NULL,
		runtime INTEGER NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	tx, err := s.db.Begin()
	if err != nil {
		return beamerr.New(beamerr.ErrCodeStoreSchema, "begin schema transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schema); err != nil {
		return beamerr.New(beamerr.ErrCodeStoreSchema, "create tables", err)
	}

	if err := tx.Commit(); err != nil {
		return beamerr.New(beamerr.ErrCodeStoreSchema, "commit schema", err)
	}
	return nil
}

// RecordUsage appends a usage event for the given input text and chosen
// result id. An empty itemID is stored as NULL (query abandoned without
// a selection still counts toward input history).
func (s *Store) RecordUsage(input, itemID string) error {
	return s.recordUsageAt(input, itemID, time.Now().UTC())
}

func (s *Store) recordUsageAt(input, itemID string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return beamerr.StoreIOError("begin usage transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var item any
	if itemID != "" {
		item = itemID
	}

	if _, err := tx.Exec(
		`INSERT INTO usages (input, itemId, timestamp) VALUES (?, ?, ?)`,
		input, item, at.Format(timeFormat),
	); err != nil {
		return beamerr.StoreIOError("insert usage event", err)
	}

	if err := tx.Commit(); err != nil {
		return beamerr.StoreIOError("commit usage event", err)
	}

	// History changed; cached boosts are stale.
	s.cache.Purge()
	return nil
}

// RecordRuntime appends a latency sample for a provider invocation.
// The duration is stored in microseconds.
func (s *Store) RecordRuntime(providerID string, elapsed time.Duration) error {
	return s.recordRuntimeAt(providerID, elapsed, time.Now().UTC())
}

func (s *Store) recordRuntimeAt(providerID string, elapsed time.Duration, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return beamerr.StoreIOError("begin runtime transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runtimes (extensionId, runtime, timestamp) VALUES (?, ?, ?)`,
		providerID, elapsed.Microseconds(), at.Format(timeFormat),
	); err != nil {
		return beamerr.StoreIOError("insert runtime sample", err)
	}

	if err := tx.Commit(); err != nil {
		return beamerr.StoreIOError("commit runtime sample", err)
	}
	return nil
}

// RankBoost returns a non-negative score derived from the count and
// recency of prior usage events matching (input, itemID). Returns 0 when
// no history exists. Each matching event contributes 1/(1+age/30d), so
// more frequent and more recent acceptances never rank lower than fewer
// or older ones.
//
// Called once per candidate result per keystroke; results are cached
// until the next usage write.
func (s *Store) RankBoost(input, itemID string) float64 {
	key := input + "\x00" + itemID
	if boost, ok := s.cache.Get(key); ok {
		return boost
	}

	var boost float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(1.0 / (1.0 + (julianday('now') - julianday(timestamp)) / ?)), 0)
		FROM usages
		WHERE input = ? AND itemId = ?
	`, boostHalfDecayDays, input, itemID).Scan(&boost)
	if err != nil {
		slog.Warn("rank boost query failed",
			slog.String("input", input),
			slog.String("error", err.Error()))
		return 0
	}

	if boost < 0 {
		boost = 0
	}
	s.cache.Add(key, boost)
	return boost
}

// Prune deletes usage events older than 90 days and runtime samples
// older than 7 days. Failures are logged, not propagated; stale history
// degrades ranking quality, never correctness.
func (s *Store) Prune() {
	if _, err := s.db.Exec(
		`DELETE FROM usages WHERE julianday('now') - julianday(timestamp) > ?`,
		UsageRetentionDays,
	); err != nil {
		slog.Warn("unable to clean up usages table", slog.String("error", err.Error()))
	}

	if _, err := s.db.Exec(
		`DELETE FROM runtimes WHERE julianday('now') - julianday(timestamp) > ?`,
		RuntimeRetentionDays,
	); err != nil {
		slog.Warn("unable to clean up runtimes table", slog.String("error", err.Error()))
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
