// Package journal persists the callbacks delivered to federates in a SQLite
// database so a run can be inspected after the fact.
//
// Recording is asynchronous: the sink returned by Sink enqueues and returns,
// and a single writer goroutine inserts records in enqueue order. Close drains
// the queue before closing the database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal: closed")

const (
	defaultBufferSize = 1024
	defaultListLimit  = 100
)

// Record is one journaled callback.
type Record struct {
	ID         int64
	Federation string
	Federate   types.FederateHandle
	Seq        uint64
	Kind       string
	Body       json.RawMessage
	RecordedAt time.Time
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Federation string
	Federate   types.FederateHandle
	Kind       string
	Limit      int
}

// Config holds journal options.
type Config struct {
	Logger     logger.Logger
	BufferSize int
}

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithBufferSize sets how many records may wait for the writer before new
// ones are dropped.
func WithBufferSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

type entry struct {
	federation string
	to         types.FederateHandle
	seq        uint64
	n          notify.Notification
	at         time.Time
}

// Journal is a SQLite-backed callback log.
type Journal struct {
	db     *sql.DB
	logger logger.Logger

	seq     atomic.Uint64
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
	queue  chan entry
	done   chan struct{}
}

// Open opens or creates the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	cfg := Config{Logger: logger.NewNoOpLogger(), BufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{
		db:     db,
		logger: cfg.Logger.WithComponent("journal"),
		queue:  make(chan entry, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	if err := j.loadSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: load sequence: %w", err)
	}

	go j.run()
	return j, nil
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			federation  TEXT    NOT NULL,
			federate    INTEGER NOT NULL,
			seq         INTEGER NOT NULL,
			kind        TEXT    NOT NULL,
			body        TEXT    NOT NULL,
			recorded_at TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_federate
			ON notifications (federation, federate, seq);
	`)
	return err
}

func (j *Journal) loadSeq() error {
	var seq int64
	if err := j.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM notifications`).Scan(&seq); err != nil {
		return err
	}
	j.seq.Store(uint64(seq))
	return nil
}

// Sink returns a notify.Sink recording every callback under the given
// federation name.
func (j *Journal) Sink(federation string) notify.Sink {
	return notify.SinkFunc(func(to types.FederateHandle, n notify.Notification) {
		j.enqueue(federation, to, n)
	})
}

func (j *Journal) enqueue(federation string, to types.FederateHandle, n notify.Notification) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}

	e := entry{federation: federation, to: to, seq: j.seq.Add(1), n: n, at: time.Now()}
	select {
	case j.queue <- e:
	default:
		if j.dropped.Add(1) == 1 {
			j.logger.Warnw("journal queue full, dropping records", "buffer", cap(j.queue))
		}
	}
}

// Dropped returns the number of records discarded because the queue was full.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

func (j *Journal) run() {
	defer close(j.done)
	for e := range j.queue {
		if err := j.insert(context.Background(), e); err != nil {
			j.logger.Errorw("failed to journal notification",
				"federation", e.federation, "federate", e.to, "kind", e.n.Kind(), "error", err)
		}
	}
}

// Append records n synchronously.
func (j *Journal) Append(ctx context.Context, federation string, to types.FederateHandle, n notify.Notification) error {
	j.mu.RLock()
	closed := j.closed
	j.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return j.insert(ctx, entry{federation: federation, to: to, seq: j.seq.Add(1), n: n, at: time.Now()})
}

func (j *Journal) insert(ctx context.Context, e entry) error {
	body, err := json.Marshal(e.n)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.n.Kind(), err)
	}
	return retryOp(defaultRetryConfig, func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO notifications (federation, federate, seq, kind, body, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.federation, int64(e.to), int64(e.seq), e.n.Kind(), string(body),
			e.at.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// List returns matching records in sequence order.
func (j *Journal) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Federation != "" {
		where = append(where, "federation = ?")
		args = append(args, f.Federation)
	}
	if f.Federate != 0 {
		where = append(where, "federate = ?")
		args = append(args, int64(f.Federate))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, federation, federate, seq, kind, body, recorded_at FROM notifications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		var federate, seq int64
		var body, recordedAtStr string
		if err := rows.Scan(&r.ID, &r.Federation, &federate, &seq, &r.Kind, &body, &recordedAtStr); err != nil {
			return nil, err
		}
		r.Federate = types.FederateHandle(federate)
		r.Seq = uint64(seq)
		r.Body = json.RawMessage(body)
		at, err := time.Parse(time.RFC3339Nano, recordedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at for record %d: %w", r.ID, err)
		}
		r.RecordedAt = at
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of journaled records.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&n)
	return n, err
}

// Close stops accepting records, waits for queued ones to be written and
// closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
