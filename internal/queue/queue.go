// Package queue implements the durable offline queue of pending local
// changes awaiting mirror to the secondary store. Persisted via
// modernc.org/sqlite, grounded on backend/sqlite/schema.go's sync_queue
// table and backend/database.go's InitDatabase open pattern.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tasksync/internal/model"
	"tasksync/internal/telemetry"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS offline_queue (
	id TEXT PRIMARY KEY,
	task_id INTEGER NOT NULL,
	operation TEXT NOT NULL CHECK(operation IN ('create', 'update', 'delete')),
	payload TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	sequence INTEGER NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	last_error TEXT,
	dead_lettered INTEGER NOT NULL DEFAULT 0,
	dead_lettered_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_offline_queue_ready ON offline_queue(next_attempt_at, sequence);
`

const (
	defaultMaxRetries  = 5
	defaultBaseDelay   = 2 * time.Second
	defaultJitterRatio = 0.2
)

// Options controls queue retry scheduling.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Queue is a durable, per-task-FIFO ordered list of pending operations.
type Queue struct {
	db         *sql.DB
	maxRetries int
	baseDelay  time.Duration
	seqCounter int64
}

// Open opens (creating if absent) the sqlite-backed queue at path.
func Open(path string, opts Options) (*Queue, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, telemetry.Wrap(telemetry.KindIO, "Open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, telemetry.Wrap(telemetry.KindCorruption, "Open", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, telemetry.Wrap(telemetry.KindCorruption, "Open", err)
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	q := &Queue{db: db, maxRetries: maxRetries, baseDelay: baseDelay}
	if err := q.restoreSequenceCounter(); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) restoreSequenceCounter() error {
	row := q.db.QueryRow(`SELECT COALESCE(MAX(sequence), 0) FROM offline_queue`)
	return row.Scan(&q.seqCounter)
}

// Close releases the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue appends entry, assigning a uuid id and the next queue-wide
// sequence number so FIFO ordering survives ties in EnqueuedAt.
func (q *Queue) Enqueue(ctx context.Context, entry model.QueueEntry) (model.QueueEntry, error) {
	entry.ID = uuid.NewString()
	entry.RetryCount = 0
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	entry.NextAttemptAt = entry.EnqueuedAt
	q.seqCounter++
	entry.Sequence = q.seqCounter

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return model.QueueEntry{}, telemetry.Wrap(telemetry.KindCorruption, "Enqueue", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO offline_queue (id, task_id, operation, payload, enqueued_at, sequence, retry_count, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		entry.ID, entry.TaskID, string(entry.Operation), payload,
		entry.EnqueuedAt.Unix(), entry.Sequence, entry.NextAttemptAt.Unix(),
	)
	if err != nil {
		return model.QueueEntry{}, telemetry.Wrap(telemetry.KindIO, "Enqueue", err)
	}
	return entry, nil
}

// Ready returns non-dead-lettered entries whose NextAttemptAt has passed,
// oldest sequence first, enforcing per-task FIFO.
func (q *Queue) Ready(ctx context.Context, now time.Time) ([]model.QueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, task_id, operation, payload, enqueued_at, sequence, retry_count, next_attempt_at, last_error, dead_lettered, dead_lettered_at
		FROM offline_queue
		WHERE dead_lettered = 0 AND next_attempt_at <= ?
		ORDER BY sequence ASC`, now.Unix())
	if err != nil {
		return nil, telemetry.Wrap(telemetry.KindIO, "Ready", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListDeadLetter returns every entry that exhausted its retry budget, for
// operator inspection.
func (q *Queue) ListDeadLetter(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, task_id, operation, payload, enqueued_at, sequence, retry_count, next_attempt_at, last_error, dead_lettered, dead_lettered_at
		FROM offline_queue
		WHERE dead_lettered = 1
		ORDER BY sequence ASC`)
	if err != nil {
		return nil, telemetry.Wrap(telemetry.KindIO, "ListDeadLetter", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for rows.Next() {
		var (
			e                          model.QueueEntry
			op                         string
			payload                    []byte
			enqueuedAt, nextAttemptAt  int64
			lastError                  sql.NullString
			deadLettered               int
			deadLetteredAt             sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &op, &payload, &enqueuedAt, &e.Sequence, &e.RetryCount, &nextAttemptAt, &lastError, &deadLettered, &deadLetteredAt); err != nil {
			return nil, telemetry.Wrap(telemetry.KindCorruption, "scanEntries", err)
		}
		e.Operation = model.Operation(op)
		e.EnqueuedAt = time.Unix(enqueuedAt, 0).UTC()
		e.NextAttemptAt = time.Unix(nextAttemptAt, 0).UTC()
		e.LastError = lastError.String
		e.DeadLettered = deadLettered != 0
		if deadLetteredAt.Valid {
			e.DeadLetteredAt = time.Unix(deadLetteredAt.Int64, 0).UTC()
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, telemetry.Wrap(telemetry.KindCorruption, "scanEntries", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSucceeded removes entry id from the queue.
func (q *Queue) MarkSucceeded(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "MarkSucceeded", err)
	}
	return nil
}

// MarkFailed increments retryCount and reschedules with exponential
// backoff plus jitter; past maxRetries the entry is moved to dead-letter
// but retained for operator inspection.
func (q *Queue) MarkFailed(ctx context.Context, id string, cause error) error {
	row := q.db.QueryRowContext(ctx, `SELECT retry_count FROM offline_queue WHERE id = ?`, id)
	var retryCount int
	if err := row.Scan(&retryCount); err != nil {
		return telemetry.Wrap(telemetry.KindIO, "MarkFailed", err)
	}
	retryCount++

	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	if retryCount > q.maxRetries {
		_, err := q.db.ExecContext(ctx, `
			UPDATE offline_queue SET retry_count = ?, last_error = ?, dead_lettered = 1, dead_lettered_at = ?
			WHERE id = ?`, retryCount, errMsg, time.Now().UTC().Unix(), id)
		if err != nil {
			return telemetry.Wrap(telemetry.KindIO, "MarkFailed", err)
		}
		return nil
	}

	delay := q.backoffWithJitter(retryCount)
	nextAttempt := time.Now().UTC().Add(delay)

	_, err := q.db.ExecContext(ctx, `
		UPDATE offline_queue SET retry_count = ?, last_error = ?, next_attempt_at = ?
		WHERE id = ?`, retryCount, errMsg, nextAttempt.Unix(), id)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "MarkFailed", err)
	}
	return nil
}

func (q *Queue) backoffWithJitter(retryCount int) time.Duration {
	delay := q.baseDelay * time.Duration(1<<uint(retryCount-1))
	jitter := time.Duration(float64(delay) * defaultJitterRatio * (rand.Float64()*2 - 1))
	result := delay + jitter
	if result < 0 {
		result = delay
	}
	return result
}

// Requeue resets a dead-lettered entry for another attempt.
func (q *Queue) Requeue(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE offline_queue SET dead_lettered = 0, dead_lettered_at = NULL, retry_count = 0, next_attempt_at = ?
		WHERE id = ?`, time.Now().UTC().Unix(), id)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "Requeue", err)
	}
	return nil
}

// Drop permanently removes a dead-lettered entry.
func (q *Queue) Drop(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ? AND dead_lettered = 1`, id)
	if err != nil {
		return telemetry.Wrap(telemetry.KindIO, "Drop", err)
	}
	return nil
}

// Len reports the total number of entries, dead-lettered or not.
func (q *Queue) Len(ctx context.Context) (int, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_queue`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, telemetry.Wrap(telemetry.KindIO, "Len", fmt.Errorf("count entries: %w", err))
	}
	return n, nil
}
