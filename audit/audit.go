// Package audit records element-resolution outcomes in SQLite.
//
// Every Resolve call leaves one row: which provider/field was requested,
// whether it resolved, which source produced the winning strategy (known,
// heuristic or ai) and how long it took. The trail is what operators read
// when a provider's markup drifts and repair rates climb.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/saudraja/ollama-ai-scrapper/dbopen"
	"github.com/saudraja/ollama-ai-scrapper/idgen"
)

// Outcome values for an Entry.
const (
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
)

// Source values for an Entry.
const (
	SourceKnown     = "known"
	SourceHeuristic = "heuristic"
	SourceAI        = "ai"
)

// Entry is one resolution record.
type Entry struct {
	EntryID    string // generated when empty
	Timestamp  int64  // unix milliseconds, set when zero
	Provider   string
	Field      string
	Outcome    string // resolved | not_found
	Source     string // known | heuristic | ai, empty when not resolved
	Strategy   string // winning strategy in display form
	DurationMs int64
	Status     string // success | error, derived from Error when empty
	Error      string
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	entry_id    TEXT PRIMARY KEY,
	ts          INTEGER NOT NULL,
	provider    TEXT NOT NULL,
	field       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	strategy    TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_provider_field ON audit_log(provider, field, ts);
`

// SQLiteLogger writes entries to a SQLite database, synchronously via Log
// or through a buffered background writer via LogAsync.
type SQLiteLogger struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time

	queue chan *Entry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator overrides the entry ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(l *SQLiteLogger) { l.now = fn }
}

// NewSQLiteLogger creates a logger over an open database. Call Init before
// logging and Close to flush the async queue.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
		now:   time.Now,
		queue: make(chan *Entry, 256),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.wg.Add(1)
	go l.drain()
	return l
}

// Init creates the audit table if missing.
func (l *SQLiteLogger) Init() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("audit: init schema: %w", err)
	}
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = l.now().UnixMilli()
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

// Log writes one entry synchronously, retrying on SQLITE_BUSY.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	_, err := dbopen.Exec(ctx, l.db,
		`INSERT INTO audit_log (entry_id, ts, provider, field, outcome, source, strategy, duration_ms, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.Timestamp, e.Provider, e.Field, e.Outcome, e.Source,
		e.Strategy, e.DurationMs, e.Status, e.Error)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// LogAsync queues one entry for the background writer. Entries queued
// after Close, or while the buffer is full, are dropped.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(e)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- e:
	default:
	}
}

func (l *SQLiteLogger) drain() {
	defer l.wg.Done()
	for e := range l.queue {
		// Background writes are best effort, the DB error has nowhere
		// useful to go.
		_ = l.Log(context.Background(), e)
	}
}

// Close flushes queued entries and stops the background writer. The
// database handle stays open, the caller owns it.
func (l *SQLiteLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	close(l.queue)
	l.wg.Wait()
	return nil
}

// Recent returns up to limit entries for a provider/field pair, newest
// first. Empty field matches all fields of the provider.
func (l *SQLiteLogger) Recent(ctx context.Context, provider, field string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT entry_id, ts, provider, field, outcome, source, strategy, duration_ms, status, error
		FROM audit_log WHERE provider = ?`
	args := []any{provider}
	if field != "" {
		query += ` AND field = ?`
		args = append(args, field)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.Provider, &e.Field,
			&e.Outcome, &e.Source, &e.Strategy, &e.DurationMs, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
